package proxy

import "testing"

func TestStaticYielderEmptyListYieldsNil(t *testing.T) {
	y := NewStaticYielder(nil)
	if p := y.Next(); p != nil {
		t.Fatalf("got %+v, want nil", p)
	}
}

func TestStaticYielderRoundRobinsOverList(t *testing.T) {
	y := NewStaticYielder([]Settings{
		{Server: "a"},
		{Server: "b"},
		{Server: "c"},
	})

	var got []string
	for i := 0; i < 7; i++ {
		p := y.Next()
		if p == nil {
			t.Fatalf("call %d: got nil, want a proxy", i)
		}
		got = append(got, p.Server)
	}

	want := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
