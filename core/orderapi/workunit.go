package orderapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// taskIDSeparator must be unique to this domain and never appear inside an
// orderid or scene value; it is what makes task IDs reversibly splittable.
const taskIDSeparator = "_@@@_"

// WorkUnit is an opaque record returned by the Order API. OrderID and Scene
// are the only attributes this scheduler relies on; Raw preserves the full
// decoded object so it can be re-serialized verbatim into a task's command
// line, exactly as the original scheduler forwards the whole unit dict to
// the worker entry point.
type WorkUnit struct {
	OrderID string
	Scene   string
	Raw     map[string]interface{}
}

// UnmarshalJSON decodes a work unit from the Order API's /products response
// shape, extracting orderid/scene while retaining every other field in Raw.
func (w *WorkUnit) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	orderID, _ := raw["orderid"].(string)
	scene, _ := raw["scene"].(string)
	w.OrderID = orderID
	w.Scene = scene
	w.Raw = raw
	return nil
}

// MarshalJSON re-serializes the unit from its captured Raw form, so the
// object forwarded to a worker matches what the Order API originally sent.
func (w WorkUnit) MarshalJSON() ([]byte, error) {
	if w.Raw != nil {
		return json.Marshal(w.Raw)
	}
	return json.Marshal(map[string]interface{}{
		"orderid": w.OrderID,
		"scene":   w.Scene,
	})
}

// Valid reports whether the unit has the two attributes this scheduler
// requires (orderid, scene) and that neither contains the task ID
// separator, which would make the resulting task ID unsplittable.
func (w *WorkUnit) Valid() error {
	if w.OrderID == "" || w.Scene == "" {
		return fmt.Errorf("orderapi: work unit missing orderid or scene: %+v", w.Raw)
	}
	if strings.Contains(w.OrderID, taskIDSeparator) || strings.Contains(w.Scene, taskIDSeparator) {
		return fmt.Errorf("orderapi: orderid/scene contains reserved separator %q", taskIDSeparator)
	}
	return nil
}

// TaskID encodes (orderid, scene) as the task identifier used on both the
// Mesos side and the running set.
func (w *WorkUnit) TaskID() string {
	return w.OrderID + taskIDSeparator + w.Scene
}

// ParseTaskID recovers (orderid, scene) from a task ID built by TaskID. It
// fails if the separator doesn't appear exactly once, which the spec treats
// as a programming error rather than a crash: callers must log and swallow
// it for that update without bringing down the status-update loop.
func ParseTaskID(taskID string) (orderID, scene string, err error) {
	parts := strings.Split(taskID, taskIDSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("orderapi: cannot split task id %q on separator %q", taskID, taskIDSeparator)
	}
	return parts[0], parts[1], nil
}
