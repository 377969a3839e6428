package hashtag

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash("Mozilla/5.0 (X11; Linux x86_64)")
	b := Hash("Mozilla/5.0 (X11; Linux x86_64)")
	if a != b {
		t.Fatalf("same input produced different hashes: %s vs %s", a, b)
	}
}

func TestHash_FixedLength(t *testing.T) {
	for _, input := range []string{"", "a", "Mozilla/5.0", string(make([]byte, 4096))} {
		if got := len(Hash(input)); got != 64 {
			t.Fatalf("expected 64 hex chars, got %d for input %q", got, input)
		}
	}
}

func TestHash_DistinctInputs(t *testing.T) {
	if Hash("chrome") == Hash("firefox") {
		t.Fatal("different inputs produced the same hash")
	}
}

func TestHash_KnownVector(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Hash("abc"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
