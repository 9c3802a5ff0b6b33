package attr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Null{}, Null{}))
	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Int(2)))
	assert.False(t, Equal(Int(1), String("1")), "different concrete types never compare equal")
	assert.True(t, Equal(List{"a"}, List{"a"}))
	assert.False(t, Equal(List{"a"}, List{"a", "b"}))
	assert.True(t, Equal(Doc{"k": "v"}, Doc{"k": "v"}))

	t1 := Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	t2 := Time(time.Date(2024, 1, 1, 2, 0, 0, 0, time.FixedZone("x", 2*3600)))
	assert.True(t, Equal(t1, t2), "same instant in different zones is equal")
}

func TestGoValue(t *testing.T) {
	assert.Nil(t, GoValue(Null{}))
	assert.Equal(t, int64(3), GoValue(Int(3)))
	assert.Equal(t, []string{"a"}, GoValue(List{"a"}))
	assert.Equal(t, "s", GoValue(String("s")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "NULL", Format(Null{}))
	assert.Equal(t, "2024-06-01 10:00:00", Format(Time(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))))
	assert.Equal(t, "true", Format(Bool(true)))
}

func TestParseTag(t *testing.T) {
	for _, name := range []string{"string", "bool", "int", "float", "timestamp", "list", "doc"} {
		tag, err := ParseTag(name)
		assert.NoError(t, err)
		assert.Equal(t, name, tag.String())
	}
	_, err := ParseTag("varchar")
	assert.Error(t, err)
}
