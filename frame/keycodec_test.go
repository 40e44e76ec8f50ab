package frame

import (
	"bytes"
	"testing"
)

func TestEncodeKeyRoundTrip(t *testing.T) {
	schema := testSchema()
	k := Key{int64(42)}
	raw := EncodeKey(schema, k)
	got, err := DecodeKey(schema, raw)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if got[0].(int64) != 42 {
		t.Fatalf("DecodeKey = %v, want 42", got)
	}
}

func TestEncodeKeyOrderAgreesWithCompare(t *testing.T) {
	schema := testSchema()
	a := Key{int64(10)}
	b := Key{int64(20)}
	if bytes.Compare(EncodeKey(schema, a), EncodeKey(schema, b)) >= 0 {
		t.Fatalf("EncodeKey order does not agree with Key.Compare for int64")
	}
	if a.Compare(b) >= 0 {
		t.Fatalf("sanity: Key.Compare itself wrong")
	}
}
