package source

import (
	"errors"
	"testing"
	"time"

	"github.com/promptvision/promptcam/pkg/frame"
)

type fakeCamera struct {
	data       []byte
	w, h       int
	grabErr    error
	closeCalls int
}

func (c *fakeCamera) Grab(timeout time.Duration) ([]byte, int, int, error) {
	if c.grabErr != nil {
		return nil, 0, 0, c.grabErr
	}
	return c.data, c.w, c.h, nil
}

func (c *fakeCamera) Close() error {
	c.closeCalls++
	return nil
}

type fakeDriver struct {
	names   []string
	cam     *fakeCamera
	openErr error
}

func (d *fakeDriver) EnumerateNames() ([]string, error) { return d.names, nil }

func (d *fakeDriver) Open(name string) (Camera, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.cam, nil
}

func TestOpenMVSNilDriver(t *testing.T) {
	_, err := OpenMVS(nil, MVSConfig{Name: "cam0"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("OpenMVS(nil) error = %v, want ErrUnavailable", err)
	}
}

func TestOpenMVSMissingName(t *testing.T) {
	_, err := OpenMVS(&fakeDriver{}, MVSConfig{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestOpenMVSOpenFailure(t *testing.T) {
	drv := &fakeDriver{openErr: errors.New("device busy")}
	_, err := OpenMVS(drv, MVSConfig{Name: "cam0"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestMVSRead(t *testing.T) {
	cam := &fakeCamera{data: make([]byte, 4*2*frame.Channels), w: 4, h: 2}
	src, err := OpenMVS(&fakeDriver{cam: cam}, MVSConfig{Name: "cam0"})
	if err != nil {
		t.Fatalf("OpenMVS() error = %v", err)
	}
	defer src.Close()

	raw, err := src.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if raw.Format != frame.FormatRGB24 {
		t.Errorf("Format = %s, want RGB24", raw.Format)
	}
	if raw.Width != 4 || raw.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 4x2", raw.Width, raw.Height)
	}
}

func TestMVSReadTimeout(t *testing.T) {
	cam := &fakeCamera{grabErr: errors.New("grab timed out")}
	src, err := OpenMVS(&fakeDriver{cam: cam}, MVSConfig{Name: "cam0"})
	if err != nil {
		t.Fatalf("OpenMVS() error = %v", err)
	}
	defer src.Close()

	if _, err := src.Read(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Read() error = %v, want ErrTimeout", err)
	}
}

func TestMVSReadShortBuffer(t *testing.T) {
	cam := &fakeCamera{data: make([]byte, 5), w: 4, h: 2}
	src, _ := OpenMVS(&fakeDriver{cam: cam}, MVSConfig{Name: "cam0"})
	defer src.Close()

	if _, err := src.Read(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Read() error = %v, want ErrTimeout", err)
	}
}

func TestMVSCloseIdempotent(t *testing.T) {
	cam := &fakeCamera{data: make([]byte, 12), w: 2, h: 2}
	src, _ := OpenMVS(&fakeDriver{cam: cam}, MVSConfig{Name: "cam0"})

	src.Close()
	src.Close()

	if cam.closeCalls != 1 {
		t.Errorf("Close() called driver %d times, want 1", cam.closeCalls)
	}
}

func TestListMVS(t *testing.T) {
	names, err := ListMVS(&fakeDriver{names: []string{"line-a", "line-b"}})
	if err != nil {
		t.Fatalf("ListMVS() error = %v", err)
	}
	if len(names) != 2 || names[0] != "line-a" {
		t.Errorf("ListMVS() = %v, want [line-a line-b]", names)
	}

	if _, err := ListMVS(nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ListMVS(nil) error = %v, want ErrUnavailable", err)
	}
}
