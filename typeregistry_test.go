package adns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nandub/adns/internal/dns"
)

func TestRRTypeWireType(t *testing.T) {
	assert.Equal(t, dns.TypeA, RRTypeA.WireType())
	assert.Equal(t, dns.TypeNS, RRTypeNS.WireType())
	assert.Equal(t, dns.TypeNS, RRTypeNSRaw.WireType())
	assert.Equal(t, dns.TypeA, RRTypeADDR.WireType())
}

func TestRRTypeIsCooked(t *testing.T) {
	assert.True(t, RRTypeNS.IsCooked())
	assert.True(t, RRTypeMX.IsCooked())
	assert.True(t, RRTypeADDR.IsCooked())
	assert.False(t, RRTypeNSRaw.IsCooked())
	assert.False(t, RRTypeA.IsCooked())
}

func TestRRTypeString(t *testing.T) {
	assert.Equal(t, "MX", RRTypeMX.String())
	assert.Equal(t, "MX-raw", RRTypeMXRaw.String())
}

func TestRRTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "unknown", RRType(999).String())
}
