package molecule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainco77/evochora-sub013/molecule"
)

func TestNewPacksTypeAndValue(t *testing.T) {
	m := molecule.New(molecule.ENERGY, 42)
	require.Equal(t, molecule.ENERGY, m.Type())
	require.Equal(t, 42, m.Value())
}

func TestNewSignExtendsNegativeValues(t *testing.T) {
	m := molecule.New(molecule.DATA, -5)
	require.Equal(t, molecule.DATA, m.Type())
	require.Equal(t, -5, m.Value())
}

func TestEmptyIsZeroValueCodeCell(t *testing.T) {
	require.True(t, molecule.Empty.IsEmpty())
	require.Equal(t, molecule.CODE, molecule.Empty.Type())
	require.Equal(t, 0, molecule.Empty.Value())

	require.False(t, molecule.New(molecule.CODE, 1).IsEmpty())
}

func TestParseTypeRoundTripsWithString(t *testing.T) {
	for _, tc := range []molecule.Type{molecule.CODE, molecule.DATA, molecule.ENERGY, molecule.STRUCTURE} {
		parsed, ok := molecule.ParseType(tc.String())
		require.True(t, ok)
		require.Equal(t, tc, parsed)
	}

	_, ok := molecule.ParseType("NOTATYPE")
	require.False(t, ok)
}

func TestValueTruncatesToValueBits(t *testing.T) {
	// Exceeds ValueBits (30): only the low 30 bits survive, then sign-extend.
	m := molecule.New(molecule.DATA, 1<<30)
	require.Equal(t, 0, m.Value())
}

func TestStringFormatsTypeAndValue(t *testing.T) {
	m := molecule.New(molecule.STRUCTURE, 9)
	require.Equal(t, "STRUCTURE:9", m.String())
}
