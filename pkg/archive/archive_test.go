package archive

import (
	"testing"
)

func TestDecodeFramesBareArray(t *testing.T) {
	frames, err := DecodeFrames([]byte(`[
		{"OBSTYPE": "DARK", "ORACTIME": 100.5, "ORACFILE": "f001"},
		{"OBSTYPE": "DARK", "ORACTIME": 101.5, "ORACFILE": "f002"}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(frames))
	}
	if v, _ := frames[0].Lookup("ORACFILE"); v.Text() != "f001" {
		t.Errorf("first frame file = %q", v.Text())
	}
	if v, _ := frames[1].Lookup("ORACTIME"); v.Text() != "101.5" {
		t.Errorf("second frame time = %q", v.Text())
	}
}

func TestDecodeFramesWrappedObject(t *testing.T) {
	frames, err := DecodeFrames([]byte(`{"frames": [{"OBSTYPE": "FLAT", "ORACTIME": 7}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(frames))
	}
}

func TestDecodeFramesErrors(t *testing.T) {
	bad := [][]byte{
		[]byte(`not json`),
		[]byte(`{"items": []}`),
		[]byte(`"scalar"`),
		[]byte(`[{"A": [1]}]`),
	}
	for _, data := range bad {
		if _, err := DecodeFrames(data); err == nil {
			t.Errorf("DecodeFrames(%s) should fail", data)
		}
	}
}
