package spec

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/randunun/bom-pricer/internal/model"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestCanonicalKey_ESC(t *testing.T) {
	assert.Equal(t, "ESC:30A", CanonicalKey("ESC", model.Specs{CurrentA: intp(30)}))
	assert.Equal(t, "ESC:UNKNOWN", CanonicalKey("esc", model.Specs{}))
}

func TestCanonicalKey_Motor(t *testing.T) {
	assert.Equal(t, "MOTOR:2205:2300KV", CanonicalKey("motor", model.Specs{Size: "2205", KV: intp(2300)}))
	assert.Equal(t, "MOTOR:2300KV", CanonicalKey("MOTOR", model.Specs{KV: intp(2300)}))
	assert.Equal(t, "MOTOR:UNKNOWN", CanonicalKey("MOTOR", model.Specs{}))
}

func TestCanonicalKey_MotorRawSlug(t *testing.T) {
	key := CanonicalKey("MOTOR", model.Specs{Raw: "CORELESS  720 DC MOTOR"})
	assert.Equal(t, "MOTOR:CORELESS_720_DC_MOTOR", key)
}

func TestCanonicalKey_MotorSlugTruncated(t *testing.T) {
	raw := strings.Repeat("LONG NAME ", 20)
	key := CanonicalKey("MOTOR", model.Specs{Raw: raw})
	assert.LessOrEqual(t, len(key), len("MOTOR:")+slugMaxLen)
}

func TestCanonicalKey_MotorSlugMultibyteTitle(t *testing.T) {
	raw := strings.Repeat("Ø", slugMaxLen+10)
	key := CanonicalKey("MOTOR", model.Specs{Raw: raw})

	assert.True(t, utf8.ValidString(key))
	assert.Equal(t, slugMaxLen, utf8.RuneCountInString(strings.TrimPrefix(key, "MOTOR:")))
}

func TestCanonicalKey_Battery(t *testing.T) {
	assert.Equal(t, "BATTERY:3S:1500MAH",
		CanonicalKey("BATTERY", model.Specs{VoltageS: strp("3S"), CapacityMAh: intp(1500)}))
	assert.Equal(t, "BATTERY:3S", CanonicalKey("LIPO", model.Specs{VoltageS: strp("3S")}))
	assert.Equal(t, "BATTERY:UNKNOWN", CanonicalKey("BATTERY", model.Specs{CapacityMAh: intp(1500)}))
}

func TestCanonicalKey_PropAndServo(t *testing.T) {
	assert.Equal(t, "PROP:5045", CanonicalKey("PROP", model.Specs{Size: "5045"}))
	assert.Equal(t, "PROP:UNKNOWN", CanonicalKey("PROPELLER", model.Specs{}))
	assert.Equal(t, "SERVO:9G", CanonicalKey("SERVO", model.Specs{Weight: "9G"}))
	assert.Equal(t, "SERVO:UNKNOWN", CanonicalKey("SERVO", model.Specs{}))
}

func TestCanonicalKey_OtherTypeAndEmpty(t *testing.T) {
	assert.Equal(t, "FRAME:UNKNOWN", CanonicalKey("frame", model.Specs{}))
	assert.Equal(t, "", CanonicalKey("", model.Specs{CurrentA: intp(30)}))
}

func TestCanonicalKey_Pure(t *testing.T) {
	s := model.Specs{CurrentA: intp(30)}
	first := CanonicalKey("ESC", s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CanonicalKey("ESC", s))
	}
}

func TestCanonicalKey_DistinctSpecsDistinctKeys(t *testing.T) {
	a := CanonicalKey("ESC", model.Specs{CurrentA: intp(30)})
	b := CanonicalKey("ESC", model.Specs{CurrentA: intp(40)})
	assert.NotEqual(t, a, b)
}
