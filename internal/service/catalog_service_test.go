package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Home Appliances":      "home-appliances",
		"  Fruits & Veggies  ": "fruits-veggies",
		"Phones":               "phones",
		"A--B":                 "a-b",
		"Déjà Vu":              "déjà-vu",
		"":                     "",
	}

	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestGenerateSKU(t *testing.T) {
	sku := GenerateSKU()

	assert.True(t, strings.HasPrefix(sku, "SKU-"))
	assert.Len(t, sku, 12)
	assert.Equal(t, strings.ToUpper(sku), sku)

	// Fresh value every time.
	assert.NotEqual(t, sku, GenerateSKU())
}
