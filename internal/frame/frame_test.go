package frame

import (
	"errors"
	"testing"
)

// patterned returns a buffer whose bytes are all distinct modulo 256.
func patterned(width, height int) *PixelBuffer {
	b := NewPixelBuffer(width, height)
	for i := range b.Pix {
		b.Pix[i] = byte(i*7 + 3)
	}
	return b
}

func pixel(b *PixelBuffer, x, y int) [4]byte {
	o := b.Offset(x, y)
	return [4]byte{b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3]}
}

func TestDecodeCorrectsRowPadding(t *testing.T) {
	// 3 pixels of 4 bytes = 12 bytes per row, padded to 16.
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	raw := NewRawFrame(3, 2, 0, []Plane{{Data: data, PixelStride: 4, RowStride: 16}}, nil)

	buf, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if buf.Width != 4 || buf.Height != 2 {
		t.Fatalf("Decode() size = %dx%d, want 4x2", buf.Width, buf.Height)
	}

	got := pixel(buf, 0, 1)
	want := [4]byte{16, 17, 18, 19}
	if got != want {
		t.Errorf("pixel(0,1) = %v, want %v", got, want)
	}
}

func TestDecodeCopiesStorage(t *testing.T) {
	data := make([]byte, 8)
	for i := range data {
		data[i] = 0x10
	}
	raw := NewRawFrame(2, 1, 0, []Plane{{Data: data, PixelStride: 4, RowStride: 8}}, nil)

	buf, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	for i := range data {
		data[i] = 0xEE
	}

	for i, v := range buf.Pix {
		if v != 0x10 {
			t.Fatalf("Pix[%d] = %#x after source overwrite, want 0x10", i, v)
		}
	}
}

func TestDecodeExpandsRGB(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	raw := NewRawFrame(2, 1, 0, []Plane{{Data: data, PixelStride: 3, RowStride: 6}}, nil)

	buf, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got, want := pixel(buf, 1, 0), [4]byte{4, 5, 6, 0xFF}; got != want {
		t.Errorf("pixel(1,0) = %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawFrame
	}{
		{
			name: "no planes",
			raw:  NewRawFrame(2, 2, 0, nil, nil),
		},
		{
			name: "undersized buffer",
			raw:  NewRawFrame(2, 2, 0, []Plane{{Data: make([]byte, 15), PixelStride: 4, RowStride: 8}}, nil),
		},
		{
			name: "row stride shorter than row",
			raw:  NewRawFrame(4, 1, 0, []Plane{{Data: make([]byte, 64), PixelStride: 4, RowStride: 8}}, nil),
		},
		{
			name: "unsupported pixel stride",
			raw:  NewRawFrame(2, 1, 0, []Plane{{Data: make([]byte, 4), PixelStride: 2, RowStride: 4}}, nil),
		},
		{
			name: "zero width",
			raw:  NewRawFrame(0, 1, 0, []Plane{{Data: make([]byte, 4), PixelStride: 4, RowStride: 4}}, nil),
		},
		{
			name: "nil frame",
			raw:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Decode(tt.raw)
			if buf != nil {
				t.Errorf("Decode() buffer = %v, want nil", buf)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
		})
	}
}

func TestRawFrameReleaseOnce(t *testing.T) {
	calls := 0
	raw := NewRawFrame(1, 1, 0, []Plane{{Data: make([]byte, 4), PixelStride: 4, RowStride: 4}}, func() { calls++ })

	raw.Release()
	raw.Release()

	if calls != 1 {
		t.Errorf("release calls = %d, want 1", calls)
	}
	if raw.Planes != nil {
		t.Error("Planes still reachable after Release")
	}
}

func TestRotateDimensions(t *testing.T) {
	src := patterned(3, 2)

	tests := []struct {
		degrees    int
		wantWidth  int
		wantHeight int
	}{
		{0, 3, 2},
		{90, 2, 3},
		{180, 3, 2},
		{270, 2, 3},
	}

	for _, tt := range tests {
		got, err := Rotate(src, tt.degrees)
		if err != nil {
			t.Fatalf("Rotate(%d) error = %v", tt.degrees, err)
		}
		if got.Width != tt.wantWidth || got.Height != tt.wantHeight {
			t.Errorf("Rotate(%d) size = %dx%d, want %dx%d",
				tt.degrees, got.Width, got.Height, tt.wantWidth, tt.wantHeight)
		}
	}
}

func TestRotateClockwise(t *testing.T) {
	src := patterned(3, 2)

	// Clockwise 90: the top-left source pixel lands in the top-right corner.
	r90, _ := Rotate(src, 90)
	if got, want := pixel(r90, r90.Width-1, 0), pixel(src, 0, 0); got != want {
		t.Errorf("Rotate(90) top-right = %v, want %v", got, want)
	}

	// 180: top-left becomes bottom-right.
	r180, _ := Rotate(src, 180)
	if got, want := pixel(r180, 2, 1), pixel(src, 0, 0); got != want {
		t.Errorf("Rotate(180) bottom-right = %v, want %v", got, want)
	}

	// Clockwise 270: the top-left source pixel lands in the bottom-left corner.
	r270, _ := Rotate(src, 270)
	if got, want := pixel(r270, 0, r270.Height-1), pixel(src, 0, 0); got != want {
		t.Errorf("Rotate(270) bottom-left = %v, want %v", got, want)
	}
}

func TestRotateRoundTrip(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 2}, {4, 4}, {5, 7}}

	for _, size := range sizes {
		src := patterned(size[0], size[1])
		for _, r := range []int{0, 90, 180, 270} {
			there, err := Rotate(src, r)
			if err != nil {
				t.Fatalf("Rotate(%d) error = %v", r, err)
			}
			back, err := Rotate(there, (360-r)%360)
			if err != nil {
				t.Fatalf("Rotate(%d) error = %v", (360-r)%360, err)
			}
			if !back.Equal(src) {
				t.Errorf("size %v: Rotate(Rotate(B, %d), %d) != B", size, r, (360-r)%360)
			}
		}
	}
}

func TestRotateZeroIsPassThrough(t *testing.T) {
	src := patterned(2, 2)
	got, err := Rotate(src, 0)
	if err != nil {
		t.Fatalf("Rotate(0) error = %v", err)
	}
	if got != src {
		t.Error("Rotate(0) returned a different buffer")
	}
}

func TestRotateInvalid(t *testing.T) {
	for _, degrees := range []int{45, -90, 360, 91} {
		if _, err := Rotate(patterned(2, 2), degrees); !errors.Is(err, ErrInvalidRotation) {
			t.Errorf("Rotate(%d) error = %v, want ErrInvalidRotation", degrees, err)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, 0, false},
		{90, 90, false},
		{-90, 270, false},
		{360, 0, false},
		{450, 90, false},
		{45, 0, true},
	}

	for _, tt := range tests {
		got, err := NormalizeRotation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeRotation(%d) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInvert(t *testing.T) {
	src := &PixelBuffer{Width: 2, Height: 1, Pix: []byte{0, 128, 255, 0, 10, 20, 30, 255}}

	got := Invert(src)

	want := []byte{255, 127, 0, 0, 245, 235, 225, 255}
	for i := range want {
		if got.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, got.Pix[i], want[i])
		}
	}

	if src.Pix[0] != 0 {
		t.Error("Invert modified its input")
	}
}

func TestInvertInvolution(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {3, 2}, {16, 9}} {
		src := patterned(size[0], size[1])
		if back := Invert(Invert(src)); !back.Equal(src) {
			t.Errorf("size %v: Invert(Invert(B)) != B", size)
		}
	}
}

func TestInvertPreservesAlpha(t *testing.T) {
	src := patterned(4, 4)
	inv := Invert(src)
	for i := 3; i < len(src.Pix); i += BytesPerPixel {
		if inv.Pix[i] != src.Pix[i] {
			t.Fatalf("alpha at %d = %d, want %d", i, inv.Pix[i], src.Pix[i])
		}
	}
}
