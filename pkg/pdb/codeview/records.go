package codeview

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// TagKind is the category of an aggregate or enumeration record.
type TagKind uint8

const (
	TagStruct TagKind = iota
	TagClass
	TagUnion
	TagEnum
)

func (k TagKind) String() string {
	switch k {
	case TagStruct:
		return "struct"
	case TagClass:
		return "class"
	case TagUnion:
		return "union"
	case TagEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Properties is the CodeView property word carried by tag records.
type Properties uint16

// ForwardReference reports whether the record only declares the tag
// without defining it.
func (p Properties) ForwardReference() bool { return p&0x0080 != 0 }

// HasUniqueName reports whether a decorated unique name follows the
// display name.
func (p Properties) HasUniqueName() bool { return p&0x0200 != 0 }

// Access is a member access specifier.
type Access uint8

const (
	AccessNone Access = iota
	AccessPrivate
	AccessProtected
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessProtected:
		return "protected"
	case AccessPublic:
		return "public"
	default:
		return ""
	}
}

// Tag is the decoded form of a class, struct, union, or enum record.
// Union records have no Derived/VTableShape; enum records additionally
// carry the underlying primitive type.
type Tag struct {
	Index      TypeIndex
	Kind       TagKind
	Properties Properties
	FieldList  TypeIndex
	Underlying TypeIndex // enums only
	Size       uint64    // aggregates only
	Name       string
	UniqueName string
}

// ParseTag decodes a tag record. It returns an error for non-tag kinds
// or truncated payloads.
func ParseTag(rec *Record) (*Tag, error) {
	data := rec.Data
	tag := &Tag{Index: rec.Index}

	switch rec.Kind {
	case LF_CLASS, LF_CLASS_old, LF_STRUCTURE, LF_STRUCTURE_old:
		// count u16, properties u16, field list u32, derived u32,
		// vshape u32, numeric size, name, [unique name]
		if len(data) < 18 {
			return nil, fmt.Errorf("class record too short: %d bytes", len(data))
		}
		if rec.Kind == LF_CLASS || rec.Kind == LF_CLASS_old {
			tag.Kind = TagClass
		} else {
			tag.Kind = TagStruct
		}
		tag.Properties = Properties(binary.LittleEndian.Uint16(data[2:]))
		tag.FieldList = TypeIndex(binary.LittleEndian.Uint32(data[4:]))
		size, n := parseNumeric(data[16:])
		tag.Size = size
		parseTagNames(tag, data[16+n:])

	case LF_UNION, LF_UNION_old:
		// count u16, properties u16, field list u32, numeric size,
		// name, [unique name]
		if len(data) < 10 {
			return nil, fmt.Errorf("union record too short: %d bytes", len(data))
		}
		tag.Kind = TagUnion
		tag.Properties = Properties(binary.LittleEndian.Uint16(data[2:]))
		tag.FieldList = TypeIndex(binary.LittleEndian.Uint32(data[4:]))
		size, n := parseNumeric(data[8:])
		tag.Size = size
		parseTagNames(tag, data[8+n:])

	case LF_ENUM, LF_ENUM_old:
		// count u16, properties u16, underlying u32, field list u32,
		// name, [unique name]
		if len(data) < 12 {
			return nil, fmt.Errorf("enum record too short: %d bytes", len(data))
		}
		tag.Kind = TagEnum
		tag.Properties = Properties(binary.LittleEndian.Uint16(data[2:]))
		tag.Underlying = TypeIndex(binary.LittleEndian.Uint32(data[4:]))
		tag.FieldList = TypeIndex(binary.LittleEndian.Uint32(data[8:]))
		parseTagNames(tag, data[12:])

	default:
		return nil, fmt.Errorf("leaf 0x%04x is not a tag record", rec.Kind)
	}

	return tag, nil
}

func parseTagNames(tag *Tag, data []byte) {
	name, n := parseString(data)
	tag.Name = name
	if tag.Properties.HasUniqueName() && n < len(data) {
		tag.UniqueName, _ = parseString(data[n:])
	}
}

// Pointer is a decoded LF_POINTER record.
type Pointer struct {
	Underlying  TypeIndex
	IsConst     bool
	IsVolatile  bool
	IsLValueRef bool
	IsRValueRef bool
}

// ParsePointer decodes an LF_POINTER payload.
func ParsePointer(data []byte) (*Pointer, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("pointer record too short: %d bytes", len(data))
	}
	attrs := binary.LittleEndian.Uint32(data[4:])
	mode := (attrs >> 5) & 0x07
	return &Pointer{
		Underlying:  TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		IsConst:     attrs&(1<<10) != 0,
		IsVolatile:  attrs&(1<<11) != 0,
		IsLValueRef: mode == 1,
		IsRValueRef: mode == 2,
	}, nil
}

// Array is a decoded LF_ARRAY record. Size is the total byte size of
// the array, not the element count.
type Array struct {
	Element   TypeIndex
	IndexType TypeIndex
	Size      uint64
}

// ParseArray decodes an LF_ARRAY payload.
func ParseArray(data []byte) (*Array, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("array record too short: %d bytes", len(data))
	}
	size, _ := parseNumeric(data[8:])
	return &Array{
		Element:   TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		IndexType: TypeIndex(binary.LittleEndian.Uint32(data[4:])),
		Size:      size,
	}, nil
}

// Modifier is a decoded LF_MODIFIER record.
type Modifier struct {
	Underlying TypeIndex
	Const      bool
	Volatile   bool
	Unaligned  bool
}

// ParseModifier decodes an LF_MODIFIER payload.
func ParseModifier(data []byte) (*Modifier, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("modifier record too short: %d bytes", len(data))
	}
	flags := binary.LittleEndian.Uint16(data[4:])
	return &Modifier{
		Underlying: TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		Const:      flags&0x01 != 0,
		Volatile:   flags&0x02 != 0,
		Unaligned:  flags&0x04 != 0,
	}, nil
}

// Bitfield is a decoded LF_BITFIELD record.
type Bitfield struct {
	Underlying TypeIndex
	Length     uint8
	Position   uint8
}

// ParseBitfield decodes an LF_BITFIELD payload.
func ParseBitfield(data []byte) (*Bitfield, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("bitfield record too short: %d bytes", len(data))
	}
	return &Bitfield{
		Underlying: TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		Length:     data[4],
		Position:   data[5],
	}, nil
}

// Procedure is a decoded LF_PROCEDURE record.
type Procedure struct {
	Return     TypeIndex
	ArgList    TypeIndex
	ParamCount uint16
}

// ParseProcedure decodes an LF_PROCEDURE payload.
func ParseProcedure(data []byte) (*Procedure, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("procedure record too short: %d bytes", len(data))
	}
	return &Procedure{
		Return:     TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		ParamCount: binary.LittleEndian.Uint16(data[6:]),
		ArgList:    TypeIndex(binary.LittleEndian.Uint32(data[8:])),
	}, nil
}

// MemberFunction is a decoded LF_MFUNCTION record.
type MemberFunction struct {
	Return     TypeIndex
	Class      TypeIndex
	This       TypeIndex
	ArgList    TypeIndex
	ParamCount uint16
}

// ParseMemberFunction decodes an LF_MFUNCTION payload.
func ParseMemberFunction(data []byte) (*MemberFunction, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("member function record too short: %d bytes", len(data))
	}
	return &MemberFunction{
		Return:     TypeIndex(binary.LittleEndian.Uint32(data[0:])),
		Class:      TypeIndex(binary.LittleEndian.Uint32(data[4:])),
		This:       TypeIndex(binary.LittleEndian.Uint32(data[8:])),
		ParamCount: binary.LittleEndian.Uint16(data[14:]),
		ArgList:    TypeIndex(binary.LittleEndian.Uint32(data[16:])),
	}, nil
}

// ParseArgList decodes an LF_ARGLIST payload into its argument type
// indices.
func ParseArgList(data []byte) ([]TypeIndex, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("argument list record too short: %d bytes", len(data))
	}
	count := binary.LittleEndian.Uint32(data[0:])
	args := make([]TypeIndex, 0, count)
	offset := 4
	for i := uint32(0); i < count && offset+4 <= len(data); i++ {
		args = append(args, TypeIndex(binary.LittleEndian.Uint32(data[offset:])))
		offset += 4
	}
	return args, nil
}

// Member is one data member of an aggregate.
type Member struct {
	Name     string
	Type     TypeIndex
	Offset   uint64
	Access   Access
	IsStatic bool
}

// BaseClass is one (possibly virtual) base of a class.
type BaseClass struct {
	Type      TypeIndex
	Offset    uint64
	Access    Access
	IsVirtual bool
}

// Enumerate is one enumerator of an enum.
type Enumerate struct {
	Name  string
	Value int64
}

// FieldList is the decoded member list of an aggregate or enum.
// Continuation records (LF_INDEX) are followed transparently by the
// caller via the Continuation index.
type FieldList struct {
	Members      []Member
	Bases        []BaseClass
	Enumerates   []Enumerate
	Continuation TypeIndex
}

// ParseFieldList decodes an LF_FIELDLIST payload. Unknown member
// leaves terminate the walk without error; whatever was decoded up to
// that point is returned.
func ParseFieldList(data []byte) (*FieldList, error) {
	fl := &FieldList{}
	offset := 0

	for offset+2 <= len(data) {
		leaf := binary.LittleEndian.Uint16(data[offset:])
		offset += 2

		switch leaf {
		case LF_MEMBER, LF_MEMBER_old:
			if offset+6 > len(data) {
				return fl, nil
			}
			attr := binary.LittleEndian.Uint16(data[offset:])
			typ := TypeIndex(binary.LittleEndian.Uint32(data[offset+2:]))
			offset += 6
			fieldOffset, n := parseNumeric(data[offset:])
			offset += n
			name, n := parseString(data[offset:])
			offset += n
			fl.Members = append(fl.Members, Member{
				Name:   name,
				Type:   typ,
				Offset: fieldOffset,
				Access: Access(attr & 0x03),
			})

		case LF_STMEMBER, LF_STMEMBER_old:
			if offset+6 > len(data) {
				return fl, nil
			}
			attr := binary.LittleEndian.Uint16(data[offset:])
			typ := TypeIndex(binary.LittleEndian.Uint32(data[offset+2:]))
			offset += 6
			name, n := parseString(data[offset:])
			offset += n
			fl.Members = append(fl.Members, Member{
				Name:     name,
				Type:     typ,
				Access:   Access(attr & 0x03),
				IsStatic: true,
			})

		case LF_BCLASS:
			if offset+6 > len(data) {
				return fl, nil
			}
			attr := binary.LittleEndian.Uint16(data[offset:])
			typ := TypeIndex(binary.LittleEndian.Uint32(data[offset+2:]))
			offset += 6
			baseOffset, n := parseNumeric(data[offset:])
			offset += n
			fl.Bases = append(fl.Bases, BaseClass{
				Type:   typ,
				Offset: baseOffset,
				Access: Access(attr & 0x03),
			})

		case LF_VBCLASS, LF_IVBCLASS:
			// attr u16, base type u32, vbptr type u32, two numerics
			if offset+10 > len(data) {
				return fl, nil
			}
			attr := binary.LittleEndian.Uint16(data[offset:])
			typ := TypeIndex(binary.LittleEndian.Uint32(data[offset+2:]))
			offset += 10
			_, n := parseNumeric(data[offset:])
			offset += n
			_, n = parseNumeric(data[offset:])
			offset += n
			fl.Bases = append(fl.Bases, BaseClass{
				Type:      typ,
				Access:    Access(attr & 0x03),
				IsVirtual: true,
			})

		case LF_ENUMERATE:
			if offset+2 > len(data) {
				return fl, nil
			}
			offset += 2 // attributes
			value, n := parseNumeric(data[offset:])
			offset += n
			name, n := parseString(data[offset:])
			offset += n
			fl.Enumerates = append(fl.Enumerates, Enumerate{
				Name:  name,
				Value: int64(value),
			})

		case LF_METHOD, LF_METHOD_old:
			// count u16, method list u32, name
			if offset+6 > len(data) {
				return fl, nil
			}
			offset += 6
			_, n := parseString(data[offset:])
			offset += n

		case LF_ONEMETHOD, LF_ONEMETHOD_old:
			// attr u16, type u32, [vtable offset u32], name
			if offset+6 > len(data) {
				return fl, nil
			}
			attr := binary.LittleEndian.Uint16(data[offset:])
			offset += 6
			if mprop := (attr >> 2) & 0x07; mprop == 4 || mprop == 6 {
				// Introducing virtual methods carry a vtable offset.
				offset += 4
			}
			_, n := parseString(data[offset:])
			offset += n

		case LF_NESTTYPE, LF_NESTTYPE_old:
			// padding u16, type u32, name
			if offset+6 > len(data) {
				return fl, nil
			}
			offset += 6
			_, n := parseString(data[offset:])
			offset += n

		case LF_VFUNCTAB:
			// padding u16, type u32
			if offset+6 > len(data) {
				return fl, nil
			}
			offset += 6

		case LF_INDEX:
			// padding u16, continuation type u32
			if offset+6 > len(data) {
				return fl, nil
			}
			fl.Continuation = TypeIndex(binary.LittleEndian.Uint32(data[offset+2:]))
			offset += 6

		default:
			// Unknown member leaf; stop decoding this list.
			return fl, nil
		}

		// Member leaves are padded to 4-byte boundaries.
		offset = (offset + 3) &^ 3
	}
	return fl, nil
}

// parseNumeric decodes a CodeView numeric leaf: a u16 immediate when
// below 0x8000, otherwise a typed value follows. Returns the value and
// the number of bytes consumed (0 on truncation).
func parseNumeric(data []byte) (uint64, int) {
	if len(data) < 2 {
		return 0, 0
	}
	v := binary.LittleEndian.Uint16(data)
	if v < 0x8000 {
		return uint64(v), 2
	}
	switch v {
	case 0x8000: // LF_CHAR
		if len(data) < 3 {
			return 0, 0
		}
		return uint64(int8(data[2])), 3
	case 0x8001: // LF_SHORT
		if len(data) < 4 {
			return 0, 0
		}
		return uint64(int16(binary.LittleEndian.Uint16(data[2:]))), 4
	case 0x8002: // LF_USHORT
		if len(data) < 4 {
			return 0, 0
		}
		return uint64(binary.LittleEndian.Uint16(data[2:])), 4
	case 0x8003: // LF_LONG
		if len(data) < 6 {
			return 0, 0
		}
		return uint64(int32(binary.LittleEndian.Uint32(data[2:]))), 6
	case 0x8004: // LF_ULONG
		if len(data) < 6 {
			return 0, 0
		}
		return uint64(binary.LittleEndian.Uint32(data[2:])), 6
	case 0x8009, 0x800a: // LF_QUADWORD, LF_UQUADWORD
		if len(data) < 10 {
			return 0, 0
		}
		return binary.LittleEndian.Uint64(data[2:]), 10
	default:
		return 0, 0
	}
}

// parseString decodes a NUL-terminated string and reports the bytes
// consumed including the terminator.
func parseString(data []byte) (string, int) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return string(data), len(data)
	}
	return string(data[:i]), i + 1
}
