// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{name: "valid password", input: []byte("secure-password-123")},
		{name: "empty password", input: []byte{}, wantErr: true},
		{name: "nil password", input: nil, wantErr: true},
		{name: "unicode password", input: []byte("пароль密码")},
		{name: "single character", input: []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyPassword)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, s.Bytes())
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []byte("1234")
	s, err := New(in)
	require.NoError(t, err)
	in[0] = 'x'
	assert.Equal(t, []byte("1234"), s.Bytes())

	out := s.Bytes()
	out[0] = 'y'
	str, err := s.String()
	require.NoError(t, err)
	assert.Equal(t, "1234", str)
}

func TestClear(t *testing.T) {
	s, err := FromString("hunter2")
	require.NoError(t, err)
	s.Clear()
	s.Clear()
	assert.Nil(t, s.Bytes())
	_, err = s.String()
	assert.ErrorIs(t, err, ErrPasswordZeroed)

	var none *Secret
	none.Clear()
	assert.Nil(t, none.Bytes())
}

func TestResolve(t *testing.T) {
	t.Setenv("P11CTL_TEST_PASSWORD", "from-env")

	s, err := Resolve("from-flag", "P11CTL_TEST_PASSWORD")
	require.NoError(t, err)
	v, _ := s.String()
	assert.Equal(t, "from-flag", v)

	s, err = Resolve("", "P11CTL_TEST_PASSWORD")
	require.NoError(t, err)
	v, _ = s.String()
	assert.Equal(t, "from-env", v)

	s, err = Resolve("", "P11CTL_TEST_UNSET")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestEqual(t *testing.T) {
	a, _ := FromString("1234")
	b, _ := FromString("1234")
	c, _ := FromString("4321")

	eq, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, eq)

	c.Clear()
	_, err = Equal(a, c)
	assert.ErrorIs(t, err, ErrPasswordZeroed)
}
