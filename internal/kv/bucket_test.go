package kv

import (
	"reflect"
	"sort"
	"testing"

	"github.com/SargeyWargey/govee-status-light/internal/db"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// exercise runs the shared contract against any Bucket implementation.
func exercise(t *testing.T, b Bucket) {
	t.Helper()

	var out payload
	ok, err := b.Get("missing", &out)
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if ok {
		t.Error("Get reported a value for a missing key")
	}

	in := payload{Name: "desk", Count: 3}
	if err := b.Store("d1", in); err != nil {
		t.Fatalf("Store: %v", err)
	}
	ok, err = b.Get("d1", &out)
	if err != nil || !ok {
		t.Fatalf("Get d1 = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("Get d1 = %+v, want %+v", out, in)
	}

	// Overwrite replaces in place.
	in.Count = 7
	if err := b.Store("d1", in); err != nil {
		t.Fatalf("Store overwrite: %v", err)
	}
	if _, err := b.Get("d1", &out); err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if out.Count != 7 {
		t.Errorf("Count after overwrite = %d, want 7", out.Count)
	}

	if err := b.Store("d2", payload{Name: "shelf"}); err != nil {
		t.Fatalf("Store d2: %v", err)
	}
	keys, err := b.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if want := []string{"d1", "d2"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	existed, err := b.Delete("d1")
	if err != nil || !existed {
		t.Fatalf("Delete d1 = %v, %v", existed, err)
	}
	existed, err = b.Delete("d1")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if existed {
		t.Error("second Delete reported the key still existed")
	}

	if err := b.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	keys, err = b.Keys()
	if err != nil {
		t.Fatalf("Keys after Clear: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys after Clear = %v, want none", keys)
	}
}

func TestMemoryBucket(t *testing.T) {
	b := NewMemoryBucket("test")
	if b.Name() != "test" {
		t.Errorf("Name = %q", b.Name())
	}
	exercise(t, b)
}

func TestSQLiteBucket(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	exercise(t, NewSQLiteBucket(database.DB, "test"))
}

func TestSQLiteBucket_Isolation(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	m := NewManager(database.DB)
	a := m.Bucket(BucketAuth)
	d := m.Bucket(BucketDevices)

	if err := a.Store("shared-key", payload{Name: "auth"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := d.Store("shared-key", payload{Name: "devices"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var out payload
	if _, err := a.Get("shared-key", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "auth" {
		t.Errorf("auth bucket value = %q, want auth", out.Name)
	}

	// Clearing one bucket leaves the other intact.
	if err := a.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	ok, err := d.Get("shared-key", &out)
	if err != nil || !ok {
		t.Fatalf("devices value lost by clearing auth bucket: %v, %v", ok, err)
	}

	// The manager caches bucket instances per name.
	if m.Bucket(BucketAuth) != a {
		t.Error("Bucket returned a new instance for a known name")
	}
}
