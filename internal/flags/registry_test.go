package flags

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookup(t *testing.T) {
	reg := Default()

	tests := []struct {
		field string
		value uint64
		want  string
	}{
		{"coff_machine", 0x0000, "IMAGE_FILE_MACHINE_UNKNOWN"},
		{"coff_machine", 0x014c, "IMAGE_FILE_MACHINE_I386"},
		{"coff_machine", 0x0200, "IMAGE_FILE_MACHINE_IA64"},
		{"coff_machine", 0x8664, "IMAGE_FILE_MACHINE_AMD64"},
		{"coff_machine", 0xaa64, "IMAGE_FILE_MACHINE_ARM64"},
		{"coff_characteristics", 0x0002, "IMAGE_FILE_EXECUTABLE_IMAGE"},
		{"coff_characteristics", 0x0020, "IMAGE_FILE_LARGE_ADDRESS_AWARE"},
		{"coff_characteristics", 0x0100, "IMAGE_FILE_32BIT_MACHINE"},
		{"coff_characteristics", 0x2000, "IMAGE_FILE_DLL"},
		{"section_characteristics", 0x00000020, "IMAGE_SCN_CNT_CODE"},
		{"section_characteristics", 0x00000040, "IMAGE_SCN_CNT_INITIALIZED_DATA"},
		{"section_characteristics", 0x02000000, "IMAGE_SCN_MEM_DISCARDABLE"},
		{"section_characteristics", 0x20000000, "IMAGE_SCN_MEM_EXECUTE"},
		{"section_characteristics", 0x40000000, "IMAGE_SCN_MEM_READ"},
		{"section_characteristics", 0x80000000, "IMAGE_SCN_MEM_WRITE"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := reg.Lookup(tt.field, tt.value)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultMisses(t *testing.T) {
	reg := Default()

	_, ok := reg.Lookup("coff_machine", 0x1234)
	assert.False(t, ok)
	_, ok = reg.Lookup("unknown_field", 0x8664)
	assert.False(t, ok)
	_, ok = reg.Lookup("section_characteristics", 0x00300000)
	assert.False(t, ok)
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestBitmaskEntriesAreSingleBits(t *testing.T) {
	reg := Default()
	for _, field := range []string{"coff_characteristics", "section_characteristics"} {
		for _, e := range reg.Entries(field) {
			assert.NotZero(t, e.Value, "%s %s", field, e.Name)
			assert.Zero(t, e.Value&(e.Value-1), "%s %s is not a single bit", field, e.Name)
		}
	}
}

func TestFieldsAndEntriesAreSorted(t *testing.T) {
	reg := Default()
	assert.Equal(t, []string{"coff_characteristics", "coff_machine", "section_characteristics"}, reg.Fields())

	entries := reg.Entries("coff_machine")
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Value, entries[i].Value)
	}
	assert.Empty(t, reg.Entries("missing"))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"hex keys", "coff_machine:\n  0x8664: AMD64\n  0x014c: I386\n", false},
		{"decimal keys", "coff_machine:\n  34404: AMD64\n", false},
		{"empty document", "", false},
		{"not a mapping", "- a\n- b\n", true},
		{"string value key", "coff_machine:\n  amd64: AMD64\n", true},
		{"empty name", "coff_machine:\n  0x8664: \"\"\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Load(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRegistry), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.input == "" {
				assert.Empty(t, reg.Fields())
				return
			}
			name, ok := reg.Lookup("coff_machine", 0x8664)
			assert.True(t, ok)
			assert.Equal(t, "AMD64", name)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coff_machine:\n  0xaa64: ARM64\n"), 0o644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	name, ok := reg.Lookup("coff_machine", 0xaa64)
	assert.True(t, ok)
	assert.Equal(t, "ARM64", name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
