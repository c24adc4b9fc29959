package dispatch

import (
	"testing"

	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
)

func echoTarget() Target {
	return Target{
		"echo": func(args []interface{}) (interface{}, error) {
			return args, nil
		},
		"fail": func(args []interface{}) (interface{}, error) {
			return nil, errors.New("backend exploded")
		},
	}
}

func TestGate(t *testing.T) {
	for _, name := range []string{"", "exists", "AIPSImage.exists.zap", ".exists", "AIPSImage.", "..."} {
		if _, _, err := SplitName(name); errors.Cause(err) != ErrUnknownAttribute {
			t.Fatalf("SplitName(%q): got %v, want ErrUnknownAttribute", name, err)
		}
	}
	class, method, err := SplitName("AIPSImage.exists")
	if err != nil || class != "AIPSImage" || method != "exists" {
		t.Fatalf("SplitName: got (%q, %q, %v)", class, method, err)
	}
}

func TestRegistryCall(t *testing.T) {
	r := NewRegistry()
	r.Register("Echo", echoTarget())

	got, err := r.Call("Echo.echo", 1, "two", true)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := []interface{}{1, "two", true}
	if render.Render(got) != render.Render(want) {
		t.Fatalf("Call: got %s, want %s", render.Render(got), render.Render(want))
	}
}

func TestRegistryRejectsUnknownNames(t *testing.T) {
	r := NewRegistry()
	r.Register("Echo", echoTarget())

	for _, name := range []string{"Echo.nosuch", "NoSuch.echo", "Echo", "Echo.echo.echo"} {
		if _, err := r.Call(name); errors.Cause(err) != ErrUnknownAttribute {
			t.Fatalf("Call(%q): got %v, want ErrUnknownAttribute", name, err)
		}
	}
}

func TestRegistryPropagatesBackendErrors(t *testing.T) {
	r := NewRegistry()
	r.Register("Echo", echoTarget())

	_, err := r.Call("Echo.fail")
	if err == nil || err.Error() != "backend exploded" {
		t.Fatalf("Call: got %v, want backend error unmodified", err)
	}
}

func TestRegisterMerges(t *testing.T) {
	r := NewRegistry()
	r.Register("Echo", echoTarget())
	r.Register("Echo", Target{
		"extra": func(args []interface{}) (interface{}, error) { return "extra", nil },
	})
	if _, err := r.Call("Echo.echo"); err != nil {
		t.Fatalf("original capability lost: %v", err)
	}
	got, err := r.Call("Echo.extra")
	if err != nil || got != "extra" {
		t.Fatalf("merged capability: got (%v, %v)", got, err)
	}
}

func TestFaultRoundTrip(t *testing.T) {
	err := errors.Wrapf(ErrUnknownAttribute, "'Foo.bar'")
	f := FaultFromError(err)
	if f.Code != FaultUnknownAttribute {
		t.Fatalf("fault code: got %s", f.Code)
	}
	if errors.Cause(f.Err()) != ErrUnknownAttribute {
		t.Fatalf("decoded fault: got %v", f.Err())
	}

	f = FaultFromError(errors.New("INDXR died"))
	if f.Code != FaultBackend {
		t.Fatalf("backend fault code: got %s", f.Code)
	}
	if f.Err().Error() != "INDXR died" {
		t.Fatalf("backend message modified: %v", f.Err())
	}
}

func TestCoercions(t *testing.T) {
	if n, err := ToInt(float64(3)); err != nil || n != 3 {
		t.Fatalf("ToInt(3.0): (%v, %v)", n, err)
	}
	if _, err := ToInt(3.5); errors.Cause(err) != ErrBadArgument {
		t.Fatalf("ToInt(3.5): %v", err)
	}
	if s, err := ToStrings([]interface{}{"a", "b"}); err != nil || len(s) != 2 {
		t.Fatalf("ToStrings: (%v, %v)", s, err)
	}
	if s, err := ToStrings(nil); err != nil || len(s) != 0 {
		t.Fatalf("ToStrings(nil): (%v, %v)", s, err)
	}
	if _, err := Int([]interface{}{1}, 1); errors.Cause(err) != ErrBadArgument {
		t.Fatalf("missing arg: %v", err)
	}
}
