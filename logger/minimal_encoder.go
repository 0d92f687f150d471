package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Everforest dark palette
const (
	colorFg       = "\x1b[38;5;223m"
	colorGreen    = "\x1b[38;5;108m"
	colorTime     = "\x1b[38;5;107m"
	colorDeep     = "\x1b[38;5;65m"
	colorAqua     = "\x1b[38;5;109m"
	colorOrange   = "\x1b[38;5;208m"
	colorYellow   = "\x1b[38;5;179m"
	colorRed      = "\x1b[38;5;167m"
	colorRedBg    = "\x1b[48;5;52m"
	colorYellowBg = "\x1b[48;5;58m"
)

var pool = buffer.NewPool()

// minimalEncoder is a compact console encoder:
//
//	13:04:35  WARN  p.extract  Skipping capability  module=Aspire.Test member=... reason=...
//
// Every field is printed as key=value; nothing is dropped.
type minimalEncoder struct {
	color  bool
	fields []zapcore.Field // accumulated by With
}

func newMinimalEncoder(color bool) *minimalEncoder {
	return &minimalEncoder{color: color}
}

func (enc *minimalEncoder) paint(color, s string) string {
	if !enc.color || s == "" {
		return s
	}
	return color + s + colorReset
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		color:  enc.color,
		fields: append([]zapcore.Field(nil), enc.fields...),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := pool.Get()

	final.AppendString(enc.paint(colorTime, ent.Time.Format("15:04:05")))

	// Info entries carry no level tag
	if ent.Level > zapcore.InfoLevel || ent.Level == zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(enc.level(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(enc.paint(colorComponent(ent.LoggerName), abbreviateName(ent.LoggerName)))
	}

	final.AppendString("  ")
	final.AppendString(enc.paint(colorFg, ent.Message))

	all := fields
	if len(enc.fields) > 0 {
		all = append(append([]zapcore.Field(nil), enc.fields...), fields...)
	}
	if s := enc.formatFields(all); s != "" {
		final.AppendString("  ")
		final.AppendString(s)
	}

	final.AppendString("\n")
	return final, nil
}

// level renders the level tag; bold with a background for WARN and ERROR
func (enc *minimalEncoder) level(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return enc.paint(colorDeep, "DEBUG")
	case zapcore.WarnLevel:
		if !enc.color {
			return "WARN"
		}
		return colorBold + colorYellowBg + colorYellow + "WARN" + colorReset
	default:
		if !enc.color {
			return l.CapitalString()
		}
		return colorBold + colorRedBg + colorRed + l.CapitalString() + colorReset
	}
}

// colorComponent picks a stable color per component name
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	switch hash % 3 {
	case 0:
		return colorGreen
	case 1:
		return colorDeep
	default:
		return colorOrange
	}
}

// abbreviateName shortens component names: pipeline.extract -> p.extract
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// formatFields renders fields as key=value in order. Durations and ids get
// their own colors.
func (enc *minimalEncoder) formatFields(fields []zapcore.Field) string {
	var values []string
	for _, field := range fields {
		if field.Type == zapcore.SkipType {
			continue
		}
		m := zapcore.NewMapObjectEncoder()
		field.AddTo(m)
		keys := make([]string, 0, len(m.Fields))
		for key := range m.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			val := fmt.Sprint(m.Fields[key])
			switch key {
			case FieldDurationMS:
				val = enc.paint(colorGreen, val) + "ms"
			case FieldRunID, FieldCapabilityID:
				val = enc.paint(colorAqua, val)
			case FieldError, FieldErrorKind:
				val = enc.paint(colorRed, val)
			}
			values = append(values, key+"="+val)
		}
	}
	return strings.Join(values, " ")
}

// Fields added through With arrive via the ObjectEncoder methods below and
// are printed ahead of each entry's own fields.

func (enc *minimalEncoder) addField(f zapcore.Field) { enc.fields = append(enc.fields, f) }

func (enc *minimalEncoder) AddArray(k string, v zapcore.ArrayMarshaler) error {
	enc.addField(zapcore.Field{Key: k, Type: zapcore.ArrayMarshalerType, Interface: v})
	return nil
}

func (enc *minimalEncoder) AddObject(k string, v zapcore.ObjectMarshaler) error {
	enc.addField(zapcore.Field{Key: k, Type: zapcore.ObjectMarshalerType, Interface: v})
	return nil
}

func (enc *minimalEncoder) AddBinary(k string, v []byte) { enc.addField(zapcore.Field{Key: k, Type: zapcore.BinaryType, Interface: v}) }
func (enc *minimalEncoder) AddByteString(k string, v []byte) { enc.addField(zapcore.Field{Key: k, Type: zapcore.ByteStringType, Interface: v}) }
func (enc *minimalEncoder) AddBool(k string, v bool) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddComplex128(k string, v complex128) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddComplex64(k string, v complex64) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddDuration(k string, v time.Duration) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddFloat64(k string, v float64) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddFloat32(k string, v float32) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddInt(k string, v int) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddInt64(k string, v int64) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddInt32(k string, v int32) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddInt16(k string, v int16) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddInt8(k string, v int8) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddString(k, v string) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddTime(k string, v time.Time) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUint(k string, v uint) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUint64(k string, v uint64) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUint32(k string, v uint32) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUint16(k string, v uint16) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUint8(k string, v uint8) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) AddUintptr(k string, v uintptr) { enc.AddReflected(k, v) }
func (enc *minimalEncoder) OpenNamespace(string) {}

func (enc *minimalEncoder) AddReflected(k string, v interface{}) error {
	enc.addField(zapcore.Field{Key: k, Type: zapcore.ReflectType, Interface: v})
	return nil
}
