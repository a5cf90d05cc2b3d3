package grouping

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFieldsMarshalYAMLPreservesOrder(t *testing.T) {
	f := mustFields(t, `{"z": 1, "a": {"m": [1, 2.5], "b": "x"}, "k": null}`)

	out, err := yaml.Marshal(f)
	if err != nil {
		t.Fatalf("yaml marshal failed: %v", err)
	}
	got := string(out)

	want := "z: 1\na:\n    m:\n        - 1\n        - 2.5\n    b: x\nk: null\n"
	// Indentation width depends on the encoder; only check key order and
	// scalar rendering.
	zi := strings.Index(got, "z:")
	ai := strings.Index(got, "a:")
	ki := strings.Index(got, "\nk:")
	if zi == -1 || ai == -1 || ki == -1 || !(zi < ai && ai < ki) {
		t.Errorf("keys out of order:\n%s\n(reference shape: %q)", got, want)
	}
	if !strings.Contains(got, "2.5") {
		t.Errorf("float lost: %s", got)
	}
	if !strings.Contains(got, "k: null") {
		t.Errorf("null not rendered: %s", got)
	}
}
