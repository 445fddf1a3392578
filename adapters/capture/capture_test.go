package capture

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

var (
	_ repositories.AudioSource = &PortAudioSource{}
	_ repositories.AudioSource = &MalgoSource{}
	_ repositories.AudioSource = &WAVFileSource{}
)

func TestFramerEmitsFixedBlocks(t *testing.T) {
	var blocks [][]float32
	framer := NewFramer(4, func(block []float32) {
		blocks = append(blocks, block)
	})

	framer.Write([]float32{1, 2, 3})
	if len(blocks) != 0 {
		t.Fatalf("Expected no block yet, got %d", len(blocks))
	}

	framer.Write([]float32{4, 5, 6, 7, 8, 9, 10})
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0][0] != 1 || blocks[0][3] != 4 || blocks[1][0] != 5 || blocks[1][3] != 8 {
		t.Errorf("Unexpected blocks: %v", blocks)
	}
	if framer.Pending() != 2 {
		t.Errorf("Expected 2 pending samples, got %d", framer.Pending())
	}

	// Emitted blocks must not be overwritten by later writes
	framer.Write([]float32{11, 12})
	if blocks[1][0] != 5 || blocks[2][0] != 9 {
		t.Errorf("Emitted block was reused: %v", blocks)
	}
}

func TestExpandChannels(t *testing.T) {
	out := expandChannels([]float32{0.1, 0.2, 0.3}, 1, 2)
	expected := []float32{0.1, 0.1, 0.2, 0.2, 0.3, 0.3}

	if len(out) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, expected[i], out[i])
		}
	}

	same := []float32{1, 2}
	if got := expandChannels(same, 2, 2); &got[0] != &same[0] {
		t.Error("Expected samples to pass through when channel counts match")
	}
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7}

	down := resample(in, 1, 32000, 16000)
	if len(down) != 4 || down[1] != 2 || down[3] != 6 {
		t.Errorf("Unexpected downsampled output: %v", down)
	}

	up := resample([]float32{0, 2}, 1, 8000, 16000)
	if len(up) != 4 || up[1] != 1 {
		t.Errorf("Unexpected upsampled output: %v", up)
	}

	if got := resample(in, 1, 16000, 16000); len(got) != len(in) {
		t.Error("Expected identity when rates match")
	}
}

func TestBytesToFloat32(t *testing.T) {
	data := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xbf}
	samples := bytesToFloat32(data, 3)

	if len(samples) != 2 || samples[0] != 1 || samples[1] != -0.5 {
		t.Errorf("Unexpected samples: %v", samples)
	}
}

func writeTestWAV(t *testing.T, sampleRate int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "speech.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func TestWAVFileSourceReplaysBlocks(t *testing.T) {
	data := make([]int, 10)
	for i := range data {
		data[i] = 16384
	}
	path := writeTestWAV(t, 16000, data)

	source, err := NewWAVFileSource(WAVFileConfig{Path: path, Speed: 1000}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWAVFileSource failed: %v", err)
	}

	devices, err := source.ListDevices(context.Background())
	if err != nil || len(devices) != 1 || devices[0].Name != "WAV file: speech.wav" {
		t.Fatalf("Unexpected devices: %+v (%v)", devices, err)
	}

	var mu sync.Mutex
	var blocks [][]float32
	stream, err := source.OpenInputStream(repositories.StreamConfig{
		DeviceIndex: 0,
		Channels:    2,
		SampleRate:  16000,
		BlockSize:   4,
	}, func(samples []float32) {
		mu.Lock()
		blocks = append(blocks, samples)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("OpenInputStream failed: %v", err)
	}

	if err := stream.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(blocks)
		mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := stream.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	stream.Close()

	mu.Lock()
	defer mu.Unlock()

	// 10 mono samples widened to stereo fill two blocks of 8 and a padded third
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}
	if len(blocks[0]) != 8 || blocks[0][0] != 0.5 || blocks[0][1] != 0.5 {
		t.Errorf("Unexpected first block: %v", blocks[0])
	}
	if blocks[2][3] != 0.5 || blocks[2][4] != 0 {
		t.Errorf("Expected the tail to be padded with silence: %v", blocks[2])
	}
}

func TestWAVFileSourceRejectsUnknownDevice(t *testing.T) {
	path := writeTestWAV(t, 16000, []int{1, 2, 3})
	source, err := NewWAVFileSource(WAVFileConfig{Path: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWAVFileSource failed: %v", err)
	}

	if _, err := source.OpenInputStream(repositories.StreamConfig{DeviceIndex: 3, Channels: 1, SampleRate: 16000, BlockSize: 4}, func([]float32) {}); err == nil {
		t.Error("Expected an error for an unknown device index")
	}
}
