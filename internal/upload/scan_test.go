package upload

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksMalicious(t *testing.T) {
	tests := []struct {
		name     string
		leading  []byte
		expected bool
	}{
		{
			name:     "script tag",
			leading:  []byte(`<script>alert(1)</script>`),
			expected: true,
		},
		{
			name:     "script tag mixed case",
			leading:  []byte(`<ScRiPt>alert(1)</sCrIpT>`),
			expected: true,
		},
		{
			name:     "javascript uri",
			leading:  []byte(`<a href="javascript:void(0)">`),
			expected: true,
		},
		{
			name:     "vbscript uri",
			leading:  []byte(`<a href="vbscript:msgbox">`),
			expected: true,
		},
		{
			name:     "onload handler",
			leading:  []byte(`<body onload=stealCookies()>`),
			expected: true,
		},
		{
			name:     "onerror handler",
			leading:  []byte(`<img src=x onerror=alert(1)>`),
			expected: true,
		},
		{
			name:     "jpeg bytes",
			leading:  []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46},
			expected: false,
		},
		{
			name:     "plain text",
			leading:  []byte("just a harmless text file"),
			expected: false,
		},
		{
			name:     "empty",
			leading:  []byte{},
			expected: false,
		},
		{
			name:     "pattern beyond the scan window is not seen",
			leading:  append(bytes.Repeat([]byte{'A'}, scanWindow), []byte("<script>")...),
			expected: false,
		},
		{
			name:     "pattern at the end of the window",
			leading:  append(bytes.Repeat([]byte{'A'}, scanWindow-len("<script")), []byte("<script")...),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LooksMalicious(tt.leading))
		})
	}
}
