package codeview

// Leaf kinds of the type records the reconstruction engine consumes.
// The *_old constants are the pre-VC8 encodings of the same records;
// both are accepted.
const (
	LF_MODIFIER  = 0x1001
	LF_POINTER   = 0x1002
	LF_PROCEDURE = 0x1008
	LF_MFUNCTION = 0x1009

	LF_ARGLIST   = 0x1201
	LF_FIELDLIST = 0x1203
	LF_BITFIELD  = 0x1205

	LF_ARRAY_old = 0x1003
	LF_ARRAY     = 0x1503

	LF_CLASS_old     = 0x1004
	LF_STRUCTURE_old = 0x1005
	LF_UNION_old     = 0x1006
	LF_ENUM_old      = 0x1007

	LF_CLASS     = 0x1504
	LF_STRUCTURE = 0x1505
	LF_UNION     = 0x1506
	LF_ENUM      = 0x1507

	// Field list member leaves.
	LF_BCLASS    = 0x1400
	LF_VBCLASS   = 0x1401
	LF_IVBCLASS  = 0x1402
	LF_ENUMERATE = 0x1403
	LF_INDEX     = 0x1405

	LF_MEMBER_old    = 0x1406
	LF_STMEMBER_old  = 0x1407
	LF_METHOD_old    = 0x1408
	LF_NESTTYPE_old  = 0x1409
	LF_VFUNCTAB      = 0x140a
	LF_ONEMETHOD_old = 0x140c

	LF_MEMBER    = 0x150d
	LF_STMEMBER  = 0x150e
	LF_METHOD    = 0x150f
	LF_NESTTYPE  = 0x1510
	LF_ONEMETHOD = 0x1511
)

// IsTagKind reports whether the leaf kind declares a class, struct,
// union, or enum record.
func IsTagKind(kind uint16) bool {
	switch kind {
	case LF_CLASS, LF_CLASS_old,
		LF_STRUCTURE, LF_STRUCTURE_old,
		LF_UNION, LF_UNION_old,
		LF_ENUM, LF_ENUM_old:
		return true
	}
	return false
}
