package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandub/adns/internal/arena"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 0, arena.Round(0))
	assert.Equal(t, 8, arena.Round(1))
	assert.Equal(t, 8, arena.Round(8))
	assert.Equal(t, 16, arena.Round(9))
}

func TestInterimAlloc(t *testing.T) {
	a := arena.NewInterim(0)
	b, err := a.Alloc(5)
	require.NoError(t, err)
	assert.Len(t, b, 5)
	assert.Equal(t, 8, a.Total())

	_, err = a.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, 16, a.Total())
}

func TestInterimBudgetExceeded(t *testing.T) {
	a := arena.NewInterim(8)
	_, err := a.Alloc(4)
	require.NoError(t, err)

	_, err = a.Alloc(100)
	assert.ErrorIs(t, err, arena.ErrBudgetExceeded)
}

func TestInterimReset(t *testing.T) {
	a := arena.NewInterim(0)
	_, err := a.Alloc(10)
	require.NoError(t, err)
	require.NotZero(t, a.Total())

	a.Reset()
	assert.Zero(t, a.Total())
}

func TestInterimTransferTo(t *testing.T) {
	child := arena.NewInterim(0)
	_, err := child.Alloc(10)
	require.NoError(t, err)

	parent := arena.NewInterim(0)
	_, err = parent.Alloc(5)
	require.NoError(t, err)

	child.TransferTo(parent)
	assert.Zero(t, child.Total())
	assert.Equal(t, arena.Round(10)+arena.Round(5), parent.Total())
}

type fakeRecord struct {
	Name string
	data []byte
}

func (r *fakeRecord) Finalize(f *arena.Final) {
	r.Name = f.AllocString(r.Name)
	r.data = f.Alloc(r.data)
}

func TestPromote(t *testing.T) {
	interim := arena.NewInterim(0)
	nameBuf, err := interim.Alloc(len("example.com"))
	require.NoError(t, err)
	copy(nameBuf, "example.com")

	dataBuf, err := interim.Alloc(4)
	require.NoError(t, err)
	copy(dataBuf, []byte{1, 2, 3, 4})

	rec := &fakeRecord{Name: string(nameBuf), data: dataBuf}

	final := arena.Promote(interim, 16, rec)
	assert.Equal(t, "example.com", rec.Name)
	assert.Equal(t, []byte{1, 2, 3, 4}, rec.data)
	assert.Zero(t, interim.Total(), "interim allocations must be fully consumed by Promote")
	assert.GreaterOrEqual(t, final.Remaining(), 0)
}
