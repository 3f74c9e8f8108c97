package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYOLOClasses(t *testing.T) {
	require.Equal(t, 80, YOLOClasses.Len())

	for i, c := range YOLOClasses.Classes {
		assert.Equal(t, i, c.Index, "class %q", c.Name)
	}

	name, err := YOLOClasses.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "person", name)

	name, err = YOLOClasses.Name(79)
	require.NoError(t, err)
	assert.Equal(t, "toothbrush", name)
}

func TestOutputClassSet_Lookup(t *testing.T) {
	idx, err := YOLOClasses.Index("Car")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = YOLOClasses.Index("unicorn")
	assert.Error(t, err)

	_, err = YOLOClasses.Name(80)
	assert.Error(t, err)

	assert.Equal(t, "person", YOLOClasses.Label(0))
	assert.Equal(t, "class 99", YOLOClasses.Label(99))
}

func TestOutputClassSet_Resolve(t *testing.T) {
	ids, err := YOLOClasses.Resolve([]string{"person", " truck "})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 7}, ids)

	ids, err = YOLOClasses.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = YOLOClasses.Resolve([]string{"person", "dragon"})
	assert.Error(t, err)
}

func TestOutputClassSet_LazyIndex(t *testing.T) {
	set := &OutputClassSet{Style: ModelFamilyYOLO, Classes: []OutputClass{{0, "a"}, {1, "b"}}}

	idx, err := set.Index("b")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}
