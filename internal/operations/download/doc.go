// Package download issues single GetObject and HeadObject requests.
// It classifies object-store failures into the module's sentinel errors
// while keeping the original error in the chain.
package download
