package draft

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x * 3), uint8(y * 5), 90, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newImage(t *testing.T, id string, role slots.Role) *slots.Image {
	t.Helper()
	return &slots.Image{ID: id, Source: pngBytes(t, 32, 24), Role: role}
}

func slotIDs(a *slots.Allocator) []string {
	var ids []string
	for _, img := range a.Slots() {
		if img == nil {
			ids = append(ids, "-")
			continue
		}
		ids = append(ids, img.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoundTrip_KeepsPositions(t *testing.T) {
	a := slots.New()
	a.InsertBefore(newImage(t, "b1", slots.RoleBefore), newImage(t, "b2", slots.RoleBefore), newImage(t, "b3", slots.RoleBefore))
	a.InsertAfter(newImage(t, "a1", slots.RoleAfter), newImage(t, "a2", slots.RoleAfter))
	a.AppendUpload(newImage(t, "u1", slots.RoleUpload))
	a.SetCaption("a2", "new belt fitted")
	want := slotIDs(a) // b1 a1 b2 a2 b3 - u1

	set, err := FromSlots(context.Background(), a, imaging.High)
	if err != nil {
		t.Fatalf("FromSlots() error = %v", err)
	}
	if c := set.Counts(); c.Before != 3 || c.After != 2 || c.Upload != 1 {
		t.Errorf("counts = %+v", c)
	}
	if set.PairCount != 3 {
		t.Errorf("PairCount = %d, want 3", set.PairCount)
	}

	restored := ToSlots(set)
	if got := slotIDs(restored); !equalIDs(got, want) {
		t.Errorf("restored = %v, want %v", got, want)
	}
	img, _ := restored.Find("a2")
	if img == nil || img.Caption != "new belt fitted" || img.Role != slots.RoleAfter {
		t.Errorf("restored a2 = %+v", img)
	}
	if _, err := imaging.Decode(img.Source); err != nil {
		t.Errorf("stored bytes not decodable: %v", err)
	}
}

func TestFromSlots_Compresses(t *testing.T) {
	a := slots.New()
	big := &slots.Image{ID: "big", Source: pngBytes(t, 1500, 900), Role: slots.RoleUpload}
	a.AppendUpload(big)

	set, err := FromSlots(context.Background(), a, imaging.High)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := imaging.Decode(set.Upload[0].Data)
	if err != nil {
		t.Fatal(err)
	}
	if b := decoded.Bounds(); b.Dx() != 1200 || b.Dy() != 720 {
		t.Errorf("stored size = %dx%d, want 1200x720", b.Dx(), b.Dy())
	}
}

func TestFromSlots_KeepsUndecodableBytes(t *testing.T) {
	a := slots.New()
	raw := []byte("not an image")
	a.AppendUpload(&slots.Image{ID: "raw", Source: raw, Role: slots.RoleUpload})

	set, err := FromSlots(context.Background(), a, imaging.High)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(set.Upload[0].Data, raw) {
		t.Errorf("data = %q, want original bytes", set.Upload[0].Data)
	}
}

func TestFromSlots_Cancelled(t *testing.T) {
	a := slots.New()
	a.AppendUpload(newImage(t, "u1", slots.RoleUpload))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FromSlots(ctx, a, imaging.High); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestToSlots_ConventionalPositions(t *testing.T) {
	// Drafts without usable positions fall back to the even/odd layout.
	set := database.ImageSet{
		Before: []database.StoredImage{{ID: "b1", Data: []byte{1}, Role: slots.RoleBefore}, {ID: "b2", Data: []byte{1}, Role: slots.RoleBefore}},
		After:  []database.StoredImage{{ID: "a1", Data: []byte{1}, Role: slots.RoleAfter}},
		Upload: []database.StoredImage{{ID: "u1", Data: []byte{1}, Role: slots.RoleUpload}},
	}
	got := slotIDs(ToSlots(set))
	want := []string{"b1", "a1", "b2", "-", "u1"}
	if !equalIDs(got, want) {
		t.Errorf("ToSlots() = %v, want %v", got, want)
	}
}

func TestToSlots_Empty(t *testing.T) {
	a := ToSlots(database.ImageSet{})
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0", a.Len())
	}
}
