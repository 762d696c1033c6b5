package dns

import (
	"net"
	"testing"

	"github.com/nandub/adns/internal/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalA(t *testing.T) {
	rr := NewIPRecord(NewRRHeader("example.com", ClassIN, 300), net.IPv4(192, 0, 2, 1))

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(b), 17)

	rdlenPos := len(b) - 4 - 2
	require.Greater(t, rdlenPos, 0)
	rdlen := int(b[rdlenPos])<<8 | int(b[rdlenPos+1])
	assert.Equal(t, 4, rdlen)
}

func TestMarshalCNAME(t *testing.T) {
	rr := NewCNAMERecord(NewRRHeader("www.example.com", ClassIN, 3600), "example.com")

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestMarshalMX(t *testing.T) {
	rr := NewMXRecord(NewRRHeader("example.com", ClassIN, 3600), 10, "mail.example.com")

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestMarshalTXT(t *testing.T) {
	tests := []struct {
		name    string
		strings []string
	}{
		{"single", []string{"hello world"}},
		{"multiple", []string{"hello", "world"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := NewTXTRecord(NewRRHeader("example.com", ClassIN, 300), tt.strings...)
			b, err := Marshal(rr)
			require.NoError(t, err)
			assert.NotEmpty(t, b)
		})
	}
}

func TestMarshalAAAA(t *testing.T) {
	addr := net.ParseIP("2001:db8::1")
	rr := NewIPRecord(NewRRHeader("example.com", ClassIN, 300), addr)

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
	assert.Equal(t, TypeAAAA, rr.Type())
}

func TestMarshalNS(t *testing.T) {
	rr := NewNSRecord(NewRRHeader("example.com", ClassIN, 86400), "ns1.example.com")

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestMarshalSOA(t *testing.T) {
	rr := NewSOARecord(NewRRHeader("example.com", ClassIN, 86400),
		"ns1.example.com", "hostmaster.example.com",
		2024010100, 7200, 3600, 1209600, 300)

	b, err := Marshal(rr)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestMarshalInvalidAData(t *testing.T) {
	rr := NewIPRecord(NewRRHeader("example.com", ClassIN, 300), net.IP("not an address"))

	_, err := Marshal(rr)
	assert.Error(t, err)
}

func TestMarshalInvalidAAAAData(t *testing.T) {
	rr := NewIPRecord(NewRRHeader("example.com", ClassIN, 300), net.IP{1, 2, 3, 4, 5})

	b, err := Marshal(rr)
	// Five raw bytes aren't a valid v4 or v6 address; To4/To16 both fail.
	assert.Error(t, err)
	assert.Nil(t, b)
}

func TestParseRR_A(t *testing.T) {
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 1, // Type A
		0, 1, // Class IN
		0, 0, 1, 44, // TTL 300
		0, 4,
		192, 0, 2, 1,
	}

	off := 0
	rr, err := ParseRecord(msg, &off)
	require.NoError(t, err)

	assert.Equal(t, "example.com", rr.Header().Name)
	assert.Equal(t, TypeA, rr.Type())
	assert.Equal(t, uint16(ClassIN), rr.Header().Class)
	assert.Equal(t, uint32(300), rr.Header().TTL)

	ipr, ok := rr.(*IPRecord)
	require.True(t, ok, "expected *IPRecord, got %T", rr)
	assert.Equal(t, "192.0.2.1", ipr.Addr.String())
}

func TestParseRR_CNAME_RoundTrip(t *testing.T) {
	rr := NewCNAMERecord(NewRRHeader("www.example.com", ClassIN, 3600), "target.example.com")

	b, err := Marshal(rr)
	require.NoError(t, err)

	off := 0
	parsed, err := ParseRecord(b, &off)
	require.NoError(t, err)

	assert.Equal(t, TypeCNAME, parsed.Type())
	nr, ok := parsed.(*NameRecord)
	require.True(t, ok)
	assert.Equal(t, "target.example.com", nr.Target)
}

func TestParseRR_MX(t *testing.T) {
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 15, // Type MX
		0, 1,
		0, 0, 14, 16, // TTL 3600
		0, 20,
		0, 10, // Preference
		4, 'm', 'a', 'i', 'l',
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
	}

	off := 0
	rr, err := ParseRecord(msg, &off)
	require.NoError(t, err)

	mx, ok := rr.(*MXRecord)
	require.True(t, ok, "expected *MXRecord, got %T", rr)
	assert.Equal(t, uint16(10), mx.Preference)
	assert.Equal(t, "mail.example.com", mx.Exchange)
}

func TestParseRR_Truncated(t *testing.T) {
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 1,
		0, 1,
		0, 0, 1, 44,
		0, 4,
		// RDLEN says 4 bytes but nothing follows
	}

	off := 0
	_, err := ParseRecord(msg, &off)
	assert.Error(t, err)
}

func TestParseRR_TTLClampedToSevenDays(t *testing.T) {
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 1, // Type A
		0, 1, // Class IN
		0xFF, 0xFF, 0xFF, 0xFF, // TTL: max uint32, far above the cap
		0, 4,
		192, 0, 2, 1,
	}

	off := 0
	rr, err := ParseRecord(msg, &off)
	require.NoError(t, err)
	assert.Equal(t, helpers.MaxTTLSeconds, rr.Header().TTL)
}

func TestParseRR_UnknownTypeIsOpaque(t *testing.T) {
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 99, // unallocated type
		0, 1,
		0, 0, 1, 44,
		0, 3,
		1, 2, 3,
	}

	off := 0
	rr, err := ParseRecord(msg, &off)
	require.NoError(t, err)

	op, ok := rr.(*OpaqueRecord)
	require.True(t, ok, "expected *OpaqueRecord, got %T", rr)
	assert.Equal(t, RecordType(99), op.Type())
	data, ok := op.Data.([]byte)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)
}
