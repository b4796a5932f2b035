package orderapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkUnitUnmarshalKeepsRawAndExtractsKeys(t *testing.T) {
	var w WorkUnit
	err := json.Unmarshal([]byte(`{"orderid":"o1","scene":"L8A","priority":5}`), &w)
	require.NoError(t, err)

	assert.Equal(t, "o1", w.OrderID)
	assert.Equal(t, "L8A", w.Scene)
	assert.Equal(t, float64(5), w.Raw["priority"])
}

func TestTaskIDRoundTrip(t *testing.T) {
	w := WorkUnit{OrderID: "o1", Scene: "L8A"}
	id := w.TaskID()
	assert.Equal(t, "o1_@@@_L8A", id)

	orderID, scene, err := ParseTaskID(id)
	require.NoError(t, err)
	assert.Equal(t, "o1", orderID)
	assert.Equal(t, "L8A", scene)
}

func TestParseTaskIDFailsOnMalformedID(t *testing.T) {
	_, _, err := ParseTaskID("not-a-valid-task-id")
	assert.Error(t, err)
}

func TestValidRejectsMissingFields(t *testing.T) {
	w := WorkUnit{OrderID: "", Scene: "L8A"}
	assert.Error(t, w.Valid())

	w2 := WorkUnit{OrderID: "o1", Scene: ""}
	assert.Error(t, w2.Valid())
}

func TestValidRejectsSeparatorCollision(t *testing.T) {
	w := WorkUnit{OrderID: "o1_@@@_evil", Scene: "L8A"}
	assert.Error(t, w.Valid())
}

func TestValidAcceptsWellFormedUnit(t *testing.T) {
	w := WorkUnit{OrderID: "o1", Scene: "L8A"}
	assert.NoError(t, w.Valid())
}
