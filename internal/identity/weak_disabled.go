//go:build mutwatch_noweak

package identity

const weakRefsAvailable = false
