package adns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveServerAddrDefaultsPort(t *testing.T) {
	addr, err := resolveServerAddr("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 53, addr.Port)
}

func TestResolveServerAddrExplicitPort(t *testing.T) {
	addr, err := resolveServerAddr("127.0.0.1:5353")
	require.NoError(t, err)
	assert.Equal(t, 5353, addr.Port)
}

func TestInitRequiresServers(t *testing.T) {
	_, err := Init(Config{})
	require.Error(t, err)
}

func TestInitAndSubmit(t *testing.T) {
	h, err := Init(Config{Servers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	defer h.Close()

	qu, err := h.Submit("example.com", RRTypeA, 0)
	require.NoError(t, err)
	assert.Equal(t, "example.com", qu.Name())
	assert.Equal(t, stateUDP, qu.state)
}

func TestAllocateIDSkipsTaken(t *testing.T) {
	h := &Handle{byID: make(map[uint16]*Query)}
	h.byID[1] = &Query{}
	h.nextID = 0
	id := h.allocateID()
	assert.Equal(t, uint16(2), id) // id 1 is already taken, so allocateID skips it
	id2 := h.allocateID()
	assert.NotEqual(t, id, id2)
}

func TestCloseIsIdempotent(t *testing.T) {
	h, err := Init(Config{Servers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestCheckAnyDrainsOutputInFinishOrder(t *testing.T) {
	h := &Handle{byID: make(map[uint16]*Query)}
	q1 := newQuery(h, 1, RRTypeA, "a.example.com", 0)
	q2 := newQuery(h, 2, RRTypeA, "b.example.com", 0)
	q1.finish(&Answer{Status: StatusOK, Type: RRTypeA})
	q2.finish(&Answer{Status: StatusOK, Type: RRTypeA})

	qu, ans, ok := h.CheckAny()
	require.True(t, ok)
	assert.Same(t, q1, qu)
	assert.Equal(t, StatusOK, ans.Status)

	qu, _, ok = h.CheckAny()
	require.True(t, ok)
	assert.Same(t, q2, qu)

	_, _, ok = h.CheckAny()
	assert.False(t, ok, "output queue should be empty once drained")
}

func TestForAllQueriesVisitsEveryQueue(t *testing.T) {
	h := &Handle{byID: make(map[uint16]*Query)}

	outstanding := newQuery(h, 1, RRTypeA, "a.example.com", 0)
	h.byID[1] = outstanding

	waitingOnChildren := newQuery(h, 2, RRTypeMX, "b.example.com", 0)
	waitingOnChildren.state = stateChild
	h.childw = []*Query{waitingOnChildren}

	completed := newQuery(h, 3, RRTypeA, "c.example.com", 0)
	completed.finish(&Answer{Status: StatusOK, Type: RRTypeA})

	var seen []*Query
	h.ForAllQueries(func(qu *Query) bool {
		seen = append(seen, qu)
		return true
	})
	assert.ElementsMatch(t, []*Query{outstanding, waitingOnChildren, completed}, seen)
}

func TestForAllQueriesStopsEarly(t *testing.T) {
	h := &Handle{byID: make(map[uint16]*Query)}
	q1 := newQuery(h, 1, RRTypeA, "a.example.com", 0)
	q2 := newQuery(h, 2, RRTypeA, "b.example.com", 0)
	h.byID[1] = q1
	h.byID[2] = q2

	visits := 0
	h.ForAllQueries(func(qu *Query) bool {
		visits++
		return false
	})
	assert.Equal(t, 1, visits)
}

func TestCancelMarksDone(t *testing.T) {
	h, err := Init(Config{Servers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	defer h.Close()

	qu, err := h.Submit("example.com", RRTypeA, 0)
	require.NoError(t, err)
	qu.Cancel()

	ans, done := qu.Check()
	assert.True(t, done)
	assert.Equal(t, StatusTimeout, ans.Status)
}
