package data_test

import (
	"os"
	"strings"
	"testing"

	"github.com/luci/go-render/render"

	"github.com/jive-vlbi/adder/aips"
	"github.com/jive-vlbi/adder/data"
	"github.com/jive-vlbi/adder/proxy/fake"
)

func newTestSystem(t *testing.T) (*aips.System, *fake.Catalog) {
	t.Helper()
	os.Setenv("DA01", "/data/one")
	t.Cleanup(func() { os.Unsetenv("DA01") })

	sys := aips.NewSystem(3601)
	cat := fake.NewCatalog()
	sys.RegisterTarget("AIPSImage", cat.ImageTarget())
	sys.RegisterTarget("AIPSUVData", cat.UVDataTarget())
	sys.RegisterTarget("AIPSCat", cat.CatTarget())
	return sys, cat
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601}
	got, err := data.DescriptorFromMap(d.Map())
	if err != nil {
		t.Fatalf("DescriptorFromMap: %v", err)
	}
	if got != d {
		t.Fatalf("round trip: got %s, want %s", render.Render(got), render.Render(d))
	}
}

func TestImageExists(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "MA",
	})

	img, err := data.NewImage(sys, "MANDELBROT", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	exists, err := img.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("catalogued image reported missing")
	}
	if err := img.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	other, err := data.NewImage(sys, "NOWHERE", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	exists, err = other.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("uncatalogued image reported present")
	}
	if err := other.Verify(); err == nil {
		t.Fatal("Verify passed on uncatalogued image")
	}
}

func TestImageHeaderAndTables(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc:   data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind:   "MA",
		Header: map[string]interface{}{"naxis": 2.0, "object": "MANDELBROT"},
		Tables: map[string]int{"PL": 2, "CC": 1},
		Rows: map[string][]map[string]interface{}{
			"CC": {{"flux": 1.5}},
		},
		History: []string{"MANDL RELEASE='31DEC19'"},
	})
	img, err := data.NewImage(sys, "MANDELBROT", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	header, err := img.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if header["object"] != "MANDELBROT" {
		t.Fatalf("header: got %s", render.Render(header))
	}

	tables, err := img.Tables()
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("tables: got %s, want 3 versions", render.Render(tables))
	}

	high, err := img.TableHighver("PL")
	if err != nil {
		t.Fatalf("TableHighver: %v", err)
	}
	if high != 2 {
		t.Fatalf("PL highver: got %d, want 2", high)
	}

	version, err := img.TableVersion("PL", 0)
	if err != nil {
		t.Fatalf("TableVersion: %v", err)
	}
	if version != 2 {
		t.Fatalf("PL version 0 resolved to %d, want 2", version)
	}

	n, err := img.TableLen("CC", 1)
	if err != nil {
		t.Fatalf("TableLen: %v", err)
	}
	if n != 1 {
		t.Fatalf("CC rows: got %d, want 1", n)
	}
	row, err := img.TableRow("CC", 1, 0)
	if err != nil {
		t.Fatalf("TableRow: %v", err)
	}
	if row["flux"] != 1.5 {
		t.Fatalf("CC row 0: got %s", render.Render(row))
	}

	if err := img.ZapTable("PL", -1); err != nil {
		t.Fatalf("ZapTable: %v", err)
	}
	high, err = img.TableHighver("PL")
	if err != nil {
		t.Fatalf("TableHighver: %v", err)
	}
	if high != 0 {
		t.Fatalf("PL highver after zap: got %d, want 0", high)
	}

	line, err := img.HistoryRow(0)
	if err != nil {
		t.Fatalf("HistoryRow: %v", err)
	}
	if !strings.HasPrefix(line, "MANDL") {
		t.Fatalf("history row 0: got %q", line)
	}
}

func TestImageRenameUpdatesHandle(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "MA",
	})
	img, err := data.NewImage(sys, "MANDELBROT", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	if err := img.Rename("JULIA", "MANDL", 2); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if img.Name() != "JULIA" || img.Seq() != 2 {
		t.Fatalf("handle after rename: %s", render.Render(img.Descriptor()))
	}
	// The handle follows the data, so calls keep resolving.
	exists, err := img.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("renamed image not found under its new identity")
	}
}

func TestImageZapHonorsBusy(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "MA",
		Busy: true,
	})
	img, err := data.NewImage(sys, "MANDELBROT", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	if err := img.Zap(false); err == nil {
		t.Fatal("Zap destroyed a busy entry")
	}
	if err := img.Clrstat(); err != nil {
		t.Fatalf("Clrstat: %v", err)
	}
	if err := img.Zap(false); err != nil {
		t.Fatalf("Zap after Clrstat: %v", err)
	}
	exists, err := img.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("zapped image still catalogued")
	}
}

func TestUVDataProperties(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc:          data.Descriptor{Name: "N05C2", Klass: "UVDATA", Disk: 1, Seq: 1, Userno: 3601},
		Kind:          "UV",
		Antennas:      []string{"EF", "WB", "JB"},
		Polarizations: []string{"R", "L"},
		Sources:       []string{"3C84"},
		Stokes:        []string{"RR", "LL"},
	})
	uv, err := data.NewUVData(sys, "N05C2", "UVDATA", 1, 1)
	if err != nil {
		t.Fatalf("NewUVData: %v", err)
	}

	antennas, err := uv.Antennas()
	if err != nil {
		t.Fatalf("Antennas: %v", err)
	}
	if len(antennas) != 3 || antennas[0] != "EF" {
		t.Fatalf("antennas: got %s", render.Render(antennas))
	}
	stokes, err := uv.Stokes()
	if err != nil {
		t.Fatalf("Stokes: %v", err)
	}
	if len(stokes) != 2 {
		t.Fatalf("stokes: got %s", render.Render(stokes))
	}

	// An image handle must not resolve visibility data of the same identity.
	img, err := data.NewImage(sys, "N05C2", "UVDATA", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	exists, err := img.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("image handle resolved a UV entry")
	}
}

func TestCopyAndEqual(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "MA",
	})
	img, err := data.NewImage(sys, "MANDELBROT", "MANDL", 1, 1)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	dup := img.Copy()
	if !img.Equal(dup) {
		t.Fatal("copy not equal to original")
	}
	if err := dup.Rename("JULIA", "MANDL", 1); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if img.Equal(dup) {
		t.Fatal("handles still equal after renaming the copy")
	}
	if img.Name() != "MANDELBROT" {
		t.Fatalf("original handle changed: %q", img.Name())
	}
}

func TestCatListsSlots(t *testing.T) {
	sys, cat := newTestSystem(t)
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "MANDELBROT", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "MA",
	})
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "N05C2", Klass: "UVDATA", Disk: 1, Seq: 1, Userno: 3601},
		Kind: "UV",
	})
	// Another user's data stays invisible.
	cat.Add(&fake.Entry{
		Desc: data.Descriptor{Name: "SECRET", Klass: "MANDL", Disk: 1, Seq: 1, Userno: 666},
		Kind: "MA",
	})

	entries, err := data.Cat(sys, 0)
	if err != nil {
		t.Fatalf("Cat: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("catalogue: got %s, want 2 entries", render.Render(entries))
	}
	if entries[0].Cno != 1 || entries[0].Name != "MANDELBROT" || entries[0].Type != "MA" {
		t.Fatalf("slot 1: got %s", render.Render(entries[0]))
	}
	if entries[1].Cno != 2 || entries[1].Type != "UV" {
		t.Fatalf("slot 2: got %s", render.Render(entries[1]))
	}
	if !strings.Contains(entries[0].String(), "MANDELBROT") {
		t.Fatalf("String: got %q", entries[0].String())
	}

	if _, err := data.Cat(sys, 40); err == nil {
		t.Fatal("Cat resolved a nonexistent disk")
	}
}
