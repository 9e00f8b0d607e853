package testutil

import (
	"math/rand"
)

// TestDataGenerator provides methods for generating reproducible test data.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{rand: rand.New(rand.NewSource(seed))}
}

// Bytes returns size pseudo-random bytes.
func (g *TestDataGenerator) Bytes(size int) []byte {
	data := make([]byte, size)
	_, _ = g.rand.Read(data)
	return data
}

// PartSizes splits total into parts of partSize with a smaller trailing part.
func (g *TestDataGenerator) PartSizes(total, partSize int64) []int64 {
	var sizes []int64
	for remaining := total; remaining > 0; remaining -= partSize {
		sizes = append(sizes, min(partSize, remaining))
	}
	return sizes
}

// MultipartObject returns an object of total random bytes stored in parts of partSize.
func (g *TestDataGenerator) MultipartObject(total, partSize int64) *Object {
	data := g.Bytes(int(total))
	sizes := g.PartSizes(total, partSize)
	return &Object{
		Data:      data,
		PartSizes: sizes,
		ETag:      CalculateMultipartETag(data, sizes),
	}
}

// SinglePartObject returns an object of total random bytes uploaded in one request.
func (g *TestDataGenerator) SinglePartObject(total int64) *Object {
	data := g.Bytes(int(total))
	return &Object{Data: data, ETag: CalculateETag(data)}
}
