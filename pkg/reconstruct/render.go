package reconstruct

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/pdb/codeview"
)

// ErrNotRenderable is returned when an index points at a record the
// engine cannot turn into a definition.
var ErrNotRenderable = errors.New("type index is not renderable")

// renderer produces the C/C++ text of a single tag record and records
// every named tag it had to reference along the way.
type renderer struct {
	file        *pdb.File
	flavor      Flavor
	printAccess bool
	self        codeview.TypeIndex
	refs        map[codeview.TypeIndex]struct{}
}

// render reconstructs one type. It returns the definition text,
// terminated by a newline, together with the set of named tags the
// definition depends on.
func render(f *pdb.File, index codeview.TypeIndex, flavor Flavor, printAccess bool) (string, map[codeview.TypeIndex]struct{}, error) {
	index = f.ResolveForwarder(index)
	r := &renderer{
		file:        f,
		flavor:      flavor,
		printAccess: printAccess,
		self:        index,
		refs:        make(map[codeview.TypeIndex]struct{}),
	}

	if index.IsSimple() {
		return primitiveName(index, flavor) + "\n", r.refs, nil
	}
	rec := f.TypeRecord(index)
	if rec == nil {
		return "", nil, fmt.Errorf("type index 0x%x: %w", uint32(index), pdb.ErrTypeNotFound)
	}
	if !codeview.IsTagKind(rec.Kind) {
		// Wrapper records (pointers, arrays, modifiers) render as a
		// bare type expression.
		name, err := r.declare(index, "")
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSpace(name) + "\n", r.refs, nil
	}

	tag, err := codeview.ParseTag(rec)
	if err != nil {
		return "", nil, fmt.Errorf("type index 0x%x: %w", uint32(index), err)
	}
	if tag.Properties.ForwardReference() {
		// Unresolved forwarder; the best we can do is a declaration.
		return fmt.Sprintf("%s %s;\n", tag.Kind, pdb.DisplayName(tag)), r.refs, nil
	}

	var text string
	if tag.Kind == codeview.TagEnum {
		text, err = r.renderEnum(tag)
	} else {
		text, err = r.renderAggregate(tag)
	}
	if err != nil {
		return "", nil, err
	}
	return text, r.refs, nil
}

func (r *renderer) renderAggregate(tag *codeview.Tag) (string, error) {
	fields, err := r.fieldList(tag.FieldList)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", tag.Kind, pdb.DisplayName(tag))
	for i, base := range fields.Bases {
		if i == 0 {
			b.WriteString(" : ")
		} else {
			b.WriteString(", ")
		}
		if r.printAccess && base.Access != codeview.AccessNone {
			b.WriteString(base.Access.String())
			b.WriteByte(' ')
		}
		if base.IsVirtual {
			b.WriteString("virtual ")
		}
		b.WriteString(r.tagName(base.Type))
	}
	fmt.Fprintf(&b, " /* size: 0x%x */\n{\n", tag.Size)

	// MSVC defaults: class members are private, struct and union
	// members public.
	current := codeview.AccessPublic
	if tag.Kind == codeview.TagClass {
		current = codeview.AccessPrivate
	}
	for _, m := range fields.Members {
		if r.printAccess && m.Access != codeview.AccessNone && m.Access != current {
			fmt.Fprintf(&b, "%s:\n", m.Access)
			current = m.Access
		}
		line, err := r.memberLine(m)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
	}
	b.WriteString("};\n")
	return b.String(), nil
}

func (r *renderer) memberLine(m codeview.Member) (string, error) {
	memberType := m.Type
	suffix := ""
	if rec := r.file.TypeRecord(memberType); rec != nil && rec.Kind == codeview.LF_BITFIELD {
		bf, err := codeview.ParseBitfield(rec.Data)
		if err != nil {
			return "", err
		}
		memberType = bf.Underlying
		suffix = fmt.Sprintf(" : %d", bf.Length)
	}

	decl, err := r.declare(memberType, m.Name)
	if err != nil {
		return "", err
	}
	if m.IsStatic {
		return fmt.Sprintf("  static %s%s;\n", decl, suffix), nil
	}
	return fmt.Sprintf("  %s%s; /* 0x%04x */\n", decl, suffix, m.Offset), nil
}

func (r *renderer) renderEnum(tag *codeview.Tag) (string, error) {
	fields, err := r.fieldList(tag.FieldList)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "enum %s", pdb.DisplayName(tag))
	if tag.Underlying != 0 {
		fmt.Fprintf(&b, " : %s", primitiveName(tag.Underlying, r.flavor))
	}
	b.WriteString("\n{\n")
	for _, e := range fields.Enumerates {
		fmt.Fprintf(&b, "  %s = %d,\n", e.Name, e.Value)
	}
	b.WriteString("};\n")
	return b.String(), nil
}

// fieldList walks a field list chain, following LF_INDEX continuation
// records. A missing field list index yields an empty list, which is
// how empty aggregates are encoded.
func (r *renderer) fieldList(index codeview.TypeIndex) (*codeview.FieldList, error) {
	merged := &codeview.FieldList{}
	seen := make(map[codeview.TypeIndex]struct{})

	for index != 0 {
		if _, ok := seen[index]; ok {
			return nil, fmt.Errorf("field list 0x%x: continuation cycle", uint32(index))
		}
		seen[index] = struct{}{}

		rec := r.file.TypeRecord(index)
		if rec == nil {
			break
		}
		if rec.Kind != codeview.LF_FIELDLIST {
			return nil, fmt.Errorf("index 0x%x: expected field list, got leaf 0x%04x",
				uint32(index), rec.Kind)
		}
		fl, err := codeview.ParseFieldList(rec.Data)
		if err != nil {
			return nil, err
		}
		merged.Members = append(merged.Members, fl.Members...)
		merged.Bases = append(merged.Bases, fl.Bases...)
		merged.Enumerates = append(merged.Enumerates, fl.Enumerates...)
		index = fl.Continuation
	}

	for _, base := range merged.Bases {
		r.addRef(base.Type)
	}
	return merged, nil
}

// declare renders "type declarator" for a member, threading the
// declarator through pointer, array, and function wrappers so that
// constructs like function pointers come out in C syntax.
func (r *renderer) declare(index codeview.TypeIndex, declarator string) (string, error) {
	if index.IsSimple() {
		return joinDecl(primitiveName(index, r.flavor), declarator), nil
	}

	rec := r.file.TypeRecord(index)
	if rec == nil {
		return "", fmt.Errorf("type index 0x%x: %w", uint32(index), pdb.ErrTypeNotFound)
	}

	switch rec.Kind {
	case codeview.LF_POINTER:
		ptr, err := codeview.ParsePointer(rec.Data)
		if err != nil {
			return "", err
		}
		op := "*"
		if ptr.IsLValueRef {
			op = "&"
		} else if ptr.IsRValueRef {
			op = "&&"
		}
		d := op + declarator
		if ptr.IsConst {
			d = op + " const"
			if declarator != "" {
				d += " " + declarator
			}
		}
		if r.needsParens(ptr.Underlying) {
			d = "(" + d + ")"
		}
		return r.declare(ptr.Underlying, d)

	case codeview.LF_ARRAY, codeview.LF_ARRAY_old:
		arr, err := codeview.ParseArray(rec.Data)
		if err != nil {
			return "", err
		}
		return r.declare(arr.Element, declarator+r.arrayExtent(arr))

	case codeview.LF_MODIFIER:
		mod, err := codeview.ParseModifier(rec.Data)
		if err != nil {
			return "", err
		}
		inner, err := r.declare(mod.Underlying, declarator)
		if err != nil {
			return "", err
		}
		if mod.Volatile {
			inner = "volatile " + inner
		}
		if mod.Const {
			inner = "const " + inner
		}
		return inner, nil

	case codeview.LF_PROCEDURE:
		proc, err := codeview.ParseProcedure(rec.Data)
		if err != nil {
			return "", err
		}
		return r.function(proc.Return, proc.ArgList, declarator)

	case codeview.LF_MFUNCTION:
		fn, err := codeview.ParseMemberFunction(rec.Data)
		if err != nil {
			return "", err
		}
		return r.function(fn.Return, fn.ArgList, declarator)

	case codeview.LF_BITFIELD:
		bf, err := codeview.ParseBitfield(rec.Data)
		if err != nil {
			return "", err
		}
		return r.declare(bf.Underlying, declarator)

	default:
		if codeview.IsTagKind(rec.Kind) {
			return joinDecl(r.tagName(index), declarator), nil
		}
		return "", fmt.Errorf("leaf 0x%04x: %w", rec.Kind, ErrNotRenderable)
	}
}

func (r *renderer) function(ret, argList codeview.TypeIndex, declarator string) (string, error) {
	retStr, err := r.declare(ret, "")
	if err != nil {
		return "", err
	}

	var args []string
	if rec := r.file.TypeRecord(argList); rec != nil && rec.Kind == codeview.LF_ARGLIST {
		indices, err := codeview.ParseArgList(rec.Data)
		if err != nil {
			return "", err
		}
		for _, ai := range indices {
			a, err := r.declare(ai, "")
			if err != nil {
				return "", err
			}
			args = append(args, a)
		}
	}
	if len(args) == 0 {
		args = []string{"void"}
	}
	return fmt.Sprintf("%s %s(%s)", retStr, declarator, strings.Join(args, ", ")), nil
}

// needsParens reports whether a pointer declarator must be
// parenthesized before the underlying type's postfix syntax.
func (r *renderer) needsParens(underlying codeview.TypeIndex) bool {
	rec := r.file.TypeRecord(underlying)
	if rec == nil {
		return false
	}
	switch rec.Kind {
	case codeview.LF_ARRAY, codeview.LF_ARRAY_old,
		codeview.LF_PROCEDURE, codeview.LF_MFUNCTION:
		return true
	}
	return false
}

// arrayExtent computes "[count]" from the array's total byte size and
// its element size, or "[]" when either is unknown.
func (r *renderer) arrayExtent(arr *codeview.Array) string {
	elemSize := r.sizeOf(arr.Element)
	if elemSize == 0 {
		return "[]"
	}
	count, err := safecast.Conv[uint32](arr.Size / elemSize)
	if err != nil {
		return "[]"
	}
	return fmt.Sprintf("[%d]", count)
}

func (r *renderer) sizeOf(index codeview.TypeIndex) uint64 {
	if index.IsSimple() {
		return codeview.SimpleTypeSize(index)
	}
	rec := r.file.TypeRecord(r.file.ResolveForwarder(index))
	if rec == nil {
		return 0
	}
	switch rec.Kind {
	case codeview.LF_POINTER:
		return 8
	case codeview.LF_MODIFIER:
		mod, err := codeview.ParseModifier(rec.Data)
		if err != nil {
			return 0
		}
		return r.sizeOf(mod.Underlying)
	case codeview.LF_ARRAY, codeview.LF_ARRAY_old:
		arr, err := codeview.ParseArray(rec.Data)
		if err != nil {
			return 0
		}
		return arr.Size
	case codeview.LF_ENUM, codeview.LF_ENUM_old:
		tag, err := codeview.ParseTag(rec)
		if err != nil {
			return 0
		}
		return codeview.SimpleTypeSize(tag.Underlying)
	default:
		if codeview.IsTagKind(rec.Kind) {
			tag, err := codeview.ParseTag(rec)
			if err != nil {
				return 0
			}
			return tag.Size
		}
		return 0
	}
}

// tagName resolves a referenced tag to its display name and registers
// it as a dependency of the type being rendered.
func (r *renderer) tagName(index codeview.TypeIndex) string {
	index = r.file.ResolveForwarder(index)
	rec := r.file.TypeRecord(index)
	if rec == nil || !codeview.IsTagKind(rec.Kind) {
		return fmt.Sprintf("type_0x%x", uint32(index))
	}
	tag, err := codeview.ParseTag(rec)
	if err != nil {
		return fmt.Sprintf("type_0x%x", uint32(index))
	}
	r.addRef(index)
	return pdb.DisplayName(tag)
}

func (r *renderer) addRef(index codeview.TypeIndex) {
	index = r.file.ResolveForwarder(index)
	if index.IsSimple() || index == r.self {
		return
	}
	if rec := r.file.TypeRecord(index); rec == nil || !codeview.IsTagKind(rec.Kind) {
		return
	}
	r.refs[index] = struct{}{}
}

func joinDecl(typ, declarator string) string {
	if declarator == "" {
		return typ
	}
	return typ + " " + declarator
}
