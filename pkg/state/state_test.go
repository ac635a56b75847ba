package state_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/JaimeStill/agentflow/pkg/state"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    state.Kind
		wantErr bool
	}{
		{in: "string", want: state.KindString},
		{in: "str", want: state.KindString},
		{in: "INT", want: state.KindInt},
		{in: "float", want: state.KindFloat},
		{in: " json ", want: state.KindJSON},
		{in: "bool", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := state.ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, state.ErrUnknownKind) {
					t.Fatalf("err = %v, want ErrUnknownKind", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindUnmarshalJSON(t *testing.T) {
	var out struct {
		Type state.Kind `json:"type"`
	}
	if err := json.Unmarshal([]byte(`{"type":"str"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != state.KindString {
		t.Errorf("type = %s, want string", out.Type)
	}

	if err := json.Unmarshal([]byte(`{"type":"bool"}`), &out); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		kind     state.Kind
		text     string
		wantText string
		wantErr  bool
	}{
		{name: "string", kind: state.KindString, text: " hello ", wantText: " hello "},
		{name: "int", kind: state.KindInt, text: " 42\n", wantText: "42"},
		{name: "int invalid", kind: state.KindInt, text: "4.2", wantErr: true},
		{name: "float", kind: state.KindFloat, text: "0.5", wantText: "0.5"},
		{name: "float invalid", kind: state.KindFloat, text: "half", wantErr: true},
		{name: "float nan", kind: state.KindFloat, text: "NaN", wantErr: true},
		{name: "float inf", kind: state.KindFloat, text: "Inf", wantErr: true},
		{name: "float negative inf", kind: state.KindFloat, text: "-Inf", wantErr: true},
		{name: "float overflow", kind: state.KindFloat, text: "1e400", wantErr: true},
		{name: "json", kind: state.KindJSON, text: `{"a":1}`, wantText: `{"a":1}`},
		{name: "json fenced", kind: state.KindJSON, text: "```json\n{\"a\":1}\n```", wantText: `{"a":1}`},
		{name: "json invalid", kind: state.KindJSON, text: "not json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := state.Parse(tt.kind, tt.text)
			if tt.wantErr {
				if !errors.Is(err, state.ErrTypeMismatch) {
					t.Fatalf("err = %v, want ErrTypeMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("kind = %s, want %s", v.Kind(), tt.kind)
			}
			if v.Text() != tt.wantText {
				t.Errorf("text = %q, want %q", v.Text(), tt.wantText)
			}
		})
	}
}

func TestZero(t *testing.T) {
	tests := []struct {
		kind state.Kind
		want string
	}{
		{kind: state.KindString, want: `""`},
		{kind: state.KindInt, want: `0`},
		{kind: state.KindFloat, want: `0`},
		{kind: state.KindJSON, want: `null`},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			data, err := json.Marshal(state.Zero(tt.kind))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("zero = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	shape := state.Shape{
		"x": state.KindString,
		"y": state.KindInt,
	}
	base := shape.Init()

	t.Run("applies update and keeps other fields", func(t *testing.T) {
		next, err := base.Merge(state.State{"x": state.String("hi")}, shape)
		if err != nil {
			t.Fatalf("merge: %v", err)
		}
		if v, _ := next.Get("x"); v.Text() != "hi" {
			t.Errorf("x = %q, want hi", v.Text())
		}
		if v, _ := next.Get("y"); !v.Equal(state.Int(0)) {
			t.Errorf("y = %v, want int(0)", v)
		}
		if v, _ := base.Get("x"); v.Text() != "" {
			t.Errorf("base mutated: x = %q", v.Text())
		}
	})

	t.Run("rejects undeclared field", func(t *testing.T) {
		_, err := base.Merge(state.State{"z": state.String("a")}, shape)
		if !errors.Is(err, state.ErrUndeclaredField) {
			t.Errorf("err = %v, want ErrUndeclaredField", err)
		}
	})

	t.Run("rejects kind mismatch", func(t *testing.T) {
		_, err := base.Merge(state.State{"y": state.String("1")}, shape)
		if !errors.Is(err, state.ErrTypeMismatch) {
			t.Errorf("err = %v, want ErrTypeMismatch", err)
		}
	})

	t.Run("rejects non-finite float", func(t *testing.T) {
		floats := state.Shape{"f": state.KindFloat}
		_, err := floats.Init().Merge(state.State{"f": state.Float(math.Inf(1))}, floats)
		if !errors.Is(err, state.ErrTypeMismatch) {
			t.Errorf("err = %v, want ErrTypeMismatch", err)
		}
	})
}

func TestDecodeNonFinite(t *testing.T) {
	for _, raw := range []string{`1e400`, `"NaN"`} {
		if _, err := state.Decode(state.KindFloat, json.RawMessage(raw)); !errors.Is(err, state.ErrTypeMismatch) {
			t.Errorf("Decode(%s) err = %v, want ErrTypeMismatch", raw, err)
		}
	}
}

func TestInfer(t *testing.T) {
	t.Run("one field per output", func(t *testing.T) {
		shape, collisions := state.Infer([]state.Output{
			{Owner: "a", Name: "x", Kind: state.KindString},
			{Owner: "b", Name: "y", Kind: state.KindJSON},
			{Owner: "c"},
		})
		if len(collisions) != 0 {
			t.Errorf("collisions = %d, want 0", len(collisions))
		}
		if len(shape) != 2 {
			t.Fatalf("shape fields = %d, want 2", len(shape))
		}
		if shape["y"] != state.KindJSON {
			t.Errorf("y = %s, want json", shape["y"])
		}
	})

	t.Run("last declaration wins", func(t *testing.T) {
		shape, collisions := state.Infer([]state.Output{
			{Owner: "a", Name: "x", Kind: state.KindString},
			{Owner: "b", Name: "x", Kind: state.KindInt},
		})
		if shape["x"] != state.KindInt {
			t.Errorf("x = %s, want int", shape["x"])
		}
		if len(collisions) != 1 {
			t.Fatalf("collisions = %d, want 1", len(collisions))
		}
		c := collisions[0]
		if c.Shadowed != "a" || c.Winner != "b" {
			t.Errorf("collision = %+v, want a shadowed by b", c)
		}
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := state.State{
		"s": state.String("text"),
		"i": state.Int(7),
		"f": state.Float(1.5),
		"j": state.JSON(json.RawMessage(`{"k":[1,2]}`)),
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded state.Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored, err := decoded.State()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	for _, key := range s.Keys() {
		if !restored[key].Equal(s[key]) {
			t.Errorf("%s = %v, want %v", key, restored[key], s[key])
		}
	}
}

func TestStateMarshalJSON(t *testing.T) {
	s := state.State{
		"answer": state.String("ok"),
		"count":  state.Int(3),
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"answer":"ok","count":3}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
