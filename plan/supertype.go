package plan

import "github.com/apache/arrow-go/v18/arrow"

// Supertype computes the narrowest type that losslessly accepts both a and
// b, per spec.md §4.2's lattice. ok is false when no common supertype
// exists (Utf8 only combines with itself, Boolean only with Boolean).
func Supertype(a, b arrow.DataType) (arrow.DataType, bool) {
	if arrow.TypeEqual(a, b) {
		return a, true
	}

	aBool, bBool := isBoolean(a), isBoolean(b)
	if aBool || bBool {
		return nil, false // already unequal, so not both boolean
	}

	aStr, bStr := isUtf8(a), isUtf8(b)
	if aStr || bStr {
		return nil, false
	}

	aFloat, bFloat := floatRank(a), floatRank(b)
	if aFloat > 0 || bFloat > 0 {
		if a.ID() == arrow.FLOAT64 || b.ID() == arrow.FLOAT64 {
			return arrow.PrimitiveTypes.Float64, true
		}
		if aFloat == 0 && !isInteger(a) {
			return nil, false
		}
		if bFloat == 0 && !isInteger(b) {
			return nil, false
		}
		return arrow.PrimitiveTypes.Float32, true
	}

	aSigned, aSRank := signedRank(a)
	bSigned, bSRank := signedRank(b)
	aUnsigned, aURank := unsignedRank(a)
	bUnsigned, bURank := unsignedRank(b)

	if !aSigned && !aUnsigned {
		return nil, false
	}
	if !bSigned && !bUnsigned {
		return nil, false
	}

	switch {
	case aSigned && bSigned:
		return signedTypeForRank(maxInt(aSRank, bSRank)), true
	case aUnsigned && bUnsigned:
		return unsignedTypeForRank(maxInt(aURank, bURank)), true
	case aSigned && bUnsigned:
		return signedTypeForRank(maxInt(aSRank, minInt(bURank+1, 4))), true
	case aUnsigned && bSigned:
		return signedTypeForRank(maxInt(bSRank, minInt(aURank+1, 4))), true
	default:
		return nil, false
	}
}

func isBoolean(dt arrow.DataType) bool { return dt.ID() == arrow.BOOL }
func isUtf8(dt arrow.DataType) bool    { return dt.ID() == arrow.STRING }

func isInteger(dt arrow.DataType) bool {
	s, _ := signedRank(dt)
	u, _ := unsignedRank(dt)
	return s || u
}

func floatRank(dt arrow.DataType) int {
	switch dt.ID() {
	case arrow.FLOAT32:
		return 1
	case arrow.FLOAT64:
		return 2
	default:
		return 0
	}
}

func signedRank(dt arrow.DataType) (bool, int) {
	switch dt.ID() {
	case arrow.INT8:
		return true, 1
	case arrow.INT16:
		return true, 2
	case arrow.INT32:
		return true, 3
	case arrow.INT64:
		return true, 4
	default:
		return false, 0
	}
}

func unsignedRank(dt arrow.DataType) (bool, int) {
	switch dt.ID() {
	case arrow.UINT8:
		return true, 1
	case arrow.UINT16:
		return true, 2
	case arrow.UINT32:
		return true, 3
	case arrow.UINT64:
		return true, 4
	default:
		return false, 0
	}
}

func signedTypeForRank(rank int) arrow.DataType {
	switch {
	case rank <= 1:
		return arrow.PrimitiveTypes.Int8
	case rank == 2:
		return arrow.PrimitiveTypes.Int16
	case rank == 3:
		return arrow.PrimitiveTypes.Int32
	default:
		return arrow.PrimitiveTypes.Int64
	}
}

func unsignedTypeForRank(rank int) arrow.DataType {
	switch {
	case rank <= 1:
		return arrow.PrimitiveTypes.Uint8
	case rank == 2:
		return arrow.PrimitiveTypes.Uint16
	case rank == 3:
		return arrow.PrimitiveTypes.Uint32
	default:
		return arrow.PrimitiveTypes.Uint64
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
