package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestTargetAddressing(t *testing.T) {
	tests := []struct {
		name      string
		target    Target
		wantFlag  byte
		wantBlock []byte
		wantStr   string
	}{
		{
			name:     "global",
			target:   GlobalTarget(),
			wantFlag: FlagGroup,
			wantStr:  "global",
		},
		{
			name:      "group",
			target:    GroupTarget(0x0102),
			wantFlag:  FlagGroup,
			wantBlock: []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0},
			wantStr:   "group:258",
		},
		{
			name:      "device",
			target:    DeviceTarget(0x84182600000b2c1d),
			wantFlag:  FlagDevice,
			wantBlock: []byte{0x1d, 0x2c, 0x0b, 0x00, 0x00, 0x26, 0x18, 0x84},
			wantStr:   "light:84:18:26:00:00:0b:2c:1d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Flag(); got != tt.wantFlag {
				t.Errorf("Flag() = 0x%02x, want 0x%02x", got, tt.wantFlag)
			}
			if got := tt.target.AddressBlock(); !bytes.Equal(got, tt.wantBlock) {
				t.Errorf("AddressBlock() = % x, want % x", got, tt.wantBlock)
			}
			if got := tt.target.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "84:18:26:00:00:0b:2c:1d", want: 0x84182600000b2c1d},
		{in: "84:18:26:00:00:0B:2C:1D", want: 0x84182600000b2c1d},
		{in: "0x84182600000b2c1d", want: 0x84182600000b2c1d},
		{in: "42", want: 42},
		{in: " 7 ", want: 7},
		{in: "", wantErr: true},
		{in: "84:18:26", wantErr: true},
		{in: "84:18:26:00:00:0b:2c:zz", wantErr: true},
		{in: "lamp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAddress(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Errorf("error = %v, want ErrInvalidTarget", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAddress(%q) = 0x%x, want 0x%x", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "group:3", want: GroupTarget(3)},
		{in: "GROUP:0x10", want: GroupTarget(16)},
		{in: "light:00:00:00:00:00:00:00:2a", want: DeviceTarget(42)},
		{in: "device:42", want: DeviceTarget(42)},
		{in: "group:70000", wantErr: true},
		{in: "group:", wantErr: true},
		{in: "scene:1", wantErr: true},
		{in: "kitchen", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTarget(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTarget(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTargetStringRoundTrip(t *testing.T) {
	for _, target := range []Target{GroupTarget(12), DeviceTarget(0xfeedfacecafebeef)} {
		parsed, err := ParseTarget(target.String())
		if err != nil {
			t.Fatalf("ParseTarget(%q) error: %v", target, err)
		}
		if parsed != target {
			t.Errorf("round trip %q = %+v, want %+v", target, parsed, target)
		}
	}
}
