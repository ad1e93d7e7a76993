package vips_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	goccyjson "github.com/goccy/go-json"

	"github.com/Skryldev/darkroom-develop/adapters/decoder"
	"github.com/Skryldev/darkroom-develop/adapters/vips"
	"github.com/Skryldev/darkroom-develop/core"
)

func makeJPEG(b *testing.B, w, h int) []byte {
	b.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92})
	return buf.Bytes()
}

func newVipsBackend(b *testing.B) *vips.Backend {
	b.Helper()
	return vips.NewBackend(vips.BackendConfig{DefaultQuality: 85})
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func BenchmarkDecode_Stdlib_1920x1080(b *testing.B) {
	raw := makeJPEG(b, 1920, 1080)
	dec := decoder.NewJPEG()

	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(context.Background(), bytes.NewReader(raw)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode_Vips_1920x1080(b *testing.B) {
	raw := makeJPEG(b, 1920, 1080)
	backend := newVipsBackend(b)
	defer backend.Shutdown()

	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := backend.Decode(context.Background(), bytes.NewReader(raw)); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Resize ───────────────────────────────────────────────────────────────────

func resizeInstance(b *testing.B, w, h int) core.OperationInstance {
	b.Helper()
	params, err := goccyjson.Marshal(vips.ResizeParams{Width: w, Height: h})
	if err != nil {
		b.Fatal(err)
	}
	return core.OperationInstance{Op: "resize", Params: params}
}

func BenchmarkResize_Vips_1920to960(b *testing.B) {
	raw := makeJPEG(b, 1920, 1080)
	backend := newVipsBackend(b)
	defer backend.Shutdown()

	input, err := backend.Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		b.Fatal(err)
	}
	resize := vips.AcceleratedResize{Backend: backend}
	inst := resizeInstance(b, 960, 540)
	roi := core.ROI{X: 0, Y: 0, Width: 960, Height: 540, Scale: 1}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := resize.Process(context.Background(), inst, input, roi, roi, &core.Shutdown{}); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Encode ───────────────────────────────────────────────────────────────────

func BenchmarkEncode_Vips_JPEG(b *testing.B) {
	raw := makeJPEG(b, 1920, 1080)
	backend := newVipsBackend(b)
	defer backend.Shutdown()

	buf, err := backend.Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := backend.Encode(context.Background(), buf, core.EncodeOptions{Quality: 85}); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Full path ────────────────────────────────────────────────────────────────

func BenchmarkPipeline_Vips_DecodeResizeEncode(b *testing.B) {
	raw := makeJPEG(b, 1920, 1080)
	backend := newVipsBackend(b)
	defer backend.Shutdown()

	resize := vips.AcceleratedResize{Backend: backend}
	inst := resizeInstance(b, 960, 540)
	roi := core.ROI{X: 0, Y: 0, Width: 960, Height: 540, Scale: 1}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := backend.Decode(context.Background(), bytes.NewReader(raw))
		if err != nil {
			b.Fatal(err)
		}
		buf, _, err = resize.Process(context.Background(), inst, buf, roi, roi, &core.Shutdown{})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := backend.Encode(context.Background(), buf, core.EncodeOptions{Quality: 80}); err != nil {
			b.Fatal(err)
		}
	}
}
