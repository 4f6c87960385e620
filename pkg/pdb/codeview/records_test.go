package codeview

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func u16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

func TestParseStructTag(t *testing.T) {
	var p bytes.Buffer
	p.Write(u16(2))      // member count
	p.Write(u16(0x0200)) // properties: has unique name
	p.Write(u32(0x1001)) // field list
	p.Write(u32(0))      // derived
	p.Write(u32(0))      // vshape
	p.Write(u16(24))     // size
	p.Write(cstr("Point"))
	p.Write(cstr(".?AUPoint@@"))

	tag, err := ParseTag(&Record{Index: 0x1002, Kind: LF_STRUCTURE, Data: p.Bytes()})
	if err != nil {
		t.Fatal(err)
	}
	if tag.Kind != TagStruct {
		t.Errorf("kind = %v, want struct", tag.Kind)
	}
	if tag.Name != "Point" || tag.UniqueName != ".?AUPoint@@" {
		t.Errorf("names = %q, %q", tag.Name, tag.UniqueName)
	}
	if tag.FieldList != 0x1001 {
		t.Errorf("field list = 0x%x, want 0x1001", uint32(tag.FieldList))
	}
	if tag.Size != 24 {
		t.Errorf("size = %d, want 24", tag.Size)
	}
	if tag.Properties.ForwardReference() {
		t.Error("complete struct reported as forward reference")
	}
}

func TestParseForwardReference(t *testing.T) {
	var p bytes.Buffer
	p.Write(u16(0))
	p.Write(u16(0x0080)) // forward reference
	p.Write(u32(0))
	p.Write(u32(0))
	p.Write(u32(0))
	p.Write(u16(0))
	p.Write(cstr("Opaque"))

	tag, err := ParseTag(&Record{Kind: LF_CLASS, Data: p.Bytes()})
	if err != nil {
		t.Fatal(err)
	}
	if !tag.Properties.ForwardReference() {
		t.Error("forward reference flag not decoded")
	}
	if tag.Kind != TagClass {
		t.Errorf("kind = %v, want class", tag.Kind)
	}
}

func TestParseEnumTag(t *testing.T) {
	var p bytes.Buffer
	p.Write(u16(3))
	p.Write(u16(0))
	p.Write(u32(uint32(T_INT4))) // underlying
	p.Write(u32(0x1003))         // field list
	p.Write(cstr("Color"))

	tag, err := ParseTag(&Record{Kind: LF_ENUM, Data: p.Bytes()})
	if err != nil {
		t.Fatal(err)
	}
	if tag.Kind != TagEnum || tag.Name != "Color" {
		t.Errorf("tag = %v %q", tag.Kind, tag.Name)
	}
	if tag.Underlying != TypeIndex(T_INT4) {
		t.Errorf("underlying = 0x%x", uint32(tag.Underlying))
	}
}

func TestParseTagRejectsOtherLeaves(t *testing.T) {
	if _, err := ParseTag(&Record{Kind: LF_POINTER, Data: make([]byte, 32)}); err == nil {
		t.Fatal("expected an error for a pointer record")
	}
}

func TestParseFieldListMembers(t *testing.T) {
	var p bytes.Buffer

	// int x at offset 0, public
	p.Write(u16(LF_MEMBER))
	p.Write(u16(uint16(AccessPublic)))
	p.Write(u32(uint32(T_INT4)))
	p.Write(u16(0))
	p.Write(cstr("x"))
	pad(&p)

	// static counter, private
	p.Write(u16(LF_STMEMBER))
	p.Write(u16(uint16(AccessPrivate)))
	p.Write(u32(uint32(T_UINT4)))
	p.Write(cstr("counter"))
	pad(&p)

	// base class at offset 0
	p.Write(u16(LF_BCLASS))
	p.Write(u16(uint16(AccessPublic)))
	p.Write(u32(0x1000))
	p.Write(u16(0))
	pad(&p)

	fl, err := ParseFieldList(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(fl.Members) != 2 {
		t.Fatalf("got %d members, want 2: %+v", len(fl.Members), fl.Members)
	}
	if fl.Members[0].Name != "x" || fl.Members[0].Type != TypeIndex(T_INT4) {
		t.Errorf("member 0 = %+v", fl.Members[0])
	}
	if !fl.Members[1].IsStatic || fl.Members[1].Access != AccessPrivate {
		t.Errorf("member 1 = %+v", fl.Members[1])
	}
	if len(fl.Bases) != 1 || fl.Bases[0].Type != 0x1000 {
		t.Errorf("bases = %+v", fl.Bases)
	}
}

func TestParseFieldListEnumerates(t *testing.T) {
	var p bytes.Buffer

	p.Write(u16(LF_ENUMERATE))
	p.Write(u16(uint16(AccessPublic)))
	p.Write(u16(0)) // value 0
	p.Write(cstr("Red"))
	pad(&p)

	negative := int32(-5)
	p.Write(u16(LF_ENUMERATE))
	p.Write(u16(uint16(AccessPublic)))
	p.Write(u16(0x8003)) // LF_LONG
	p.Write(u32(uint32(negative)))
	p.Write(cstr("Invalid"))
	pad(&p)

	fl, err := ParseFieldList(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(fl.Enumerates) != 2 {
		t.Fatalf("got %d enumerators, want 2", len(fl.Enumerates))
	}
	if fl.Enumerates[0].Name != "Red" || fl.Enumerates[0].Value != 0 {
		t.Errorf("enumerator 0 = %+v", fl.Enumerates[0])
	}
	if fl.Enumerates[1].Name != "Invalid" || fl.Enumerates[1].Value != -5 {
		t.Errorf("enumerator 1 = %+v", fl.Enumerates[1])
	}
}

func TestParseFieldListContinuation(t *testing.T) {
	var p bytes.Buffer
	p.Write(u16(LF_INDEX))
	p.Write(u16(0))
	p.Write(u32(0x1042))

	fl, err := ParseFieldList(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if fl.Continuation != 0x1042 {
		t.Errorf("continuation = 0x%x, want 0x1042", uint32(fl.Continuation))
	}
}

func TestParseNumericLeaves(t *testing.T) {
	tests := []struct {
		data  []byte
		value uint64
		size  int
	}{
		{u16(0), 0, 2},
		{u16(0x7fff), 0x7fff, 2},
		{append(u16(0x8002), u16(0xbeef)...), 0xbeef, 4},
		{append(u16(0x8004), u32(0xdeadbeef)...), 0xdeadbeef, 6},
		{u16(0x8000), 0, 0}, // truncated LF_CHAR
	}
	for i, tt := range tests {
		v, n := parseNumeric(tt.data)
		if n != tt.size || (n > 0 && v != tt.value) {
			t.Errorf("case %d: got (%d, %d), want (%d, %d)", i, v, n, tt.value, tt.size)
		}
	}
}

func TestParsePointer(t *testing.T) {
	var p bytes.Buffer
	p.Write(u32(uint32(T_INT4)))
	p.Write(u32(0x0001000c))

	ptr, err := ParsePointer(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if ptr.Underlying != TypeIndex(T_INT4) {
		t.Errorf("underlying = 0x%x", uint32(ptr.Underlying))
	}
	if ptr.IsConst || ptr.IsLValueRef || ptr.IsRValueRef {
		t.Errorf("plain pointer decoded with qualifiers: %+v", ptr)
	}
}

func TestParseBitfield(t *testing.T) {
	var p bytes.Buffer
	p.Write(u32(uint32(T_UINT4)))
	p.WriteByte(3) // length
	p.WriteByte(5) // position

	bf, err := ParseBitfield(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if bf.Length != 3 || bf.Position != 5 {
		t.Errorf("bitfield = %+v", bf)
	}
}

func pad(p *bytes.Buffer) {
	for p.Len()%4 != 0 {
		p.WriteByte(0xF0)
	}
}
