package plan

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xwb1989/sqlparser"

	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/sqltypes"
)

// Catalog is the minimal metadata surface the translator needs: enough to
// resolve a FROM-clause table to a schema and a function call to its
// metadata. catalog.Catalog satisfies this; it is redeclared here instead
// of imported so this package never depends on catalog (catalog depends
// on physical, which depends on the compiler, which depends on this
// package).
type Catalog interface {
	GetTableMeta(name string) (*arrow.Schema, bool)
	GetFunctionMeta(name string) (*FunctionMeta, bool)
}

// FunctionMeta mirrors catalog.FunctionMeta (see Catalog's doc comment
// above for why the two are kept separate).
type FunctionMeta struct {
	Name       string
	Args       []arrow.Field
	ReturnType arrow.DataType
}

// ToLogicalPlan translates a parsed SQL statement into a LogicalPlan,
// grounded in the teacher's engine.ParseAndPlan and the Rust
// sqlplanner.rs this spec was distilled from. Only SELECT is supported,
// per spec.md §2.
func ToLogicalPlan(stmt sqlparser.Statement, cat Catalog) (*LogicalPlan, error) {
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, golaperr.Newf(golaperr.General, "only SELECT statements are supported")
	}
	return translateSelect(sel, cat)
}

func translateSelect(sel *sqlparser.Select, cat Catalog) (*LogicalPlan, error) {
	if sel.Having != nil {
		return nil, golaperr.Newf(golaperr.NotImplemented, "HAVING is not implemented yet")
	}
	if len(sel.From) != 1 {
		return nil, golaperr.Newf(golaperr.General, "exactly one table is required in the FROM clause")
	}

	tableName, err := extractTableName(sel.From[0])
	if err != nil {
		return nil, err
	}
	schema, ok := cat.GetTableMeta(tableName)
	if !ok {
		return nil, golaperr.Newf(golaperr.General, "No table registered as '%s'", tableName)
	}

	p := TableScan("", tableName, schema, nil)

	if sel.Where != nil {
		expr, err := translateExpr(sel.Where.Expr, schema, cat)
		if err != nil {
			return nil, err
		}
		boolExpr, err := CastTo(expr, arrow.FixedWidthTypes.Boolean, schema)
		if err != nil {
			return nil, err
		}
		p = Selection(boolExpr, p)
	}

	aggrExprs, groupExprs, projectExprs, isStar, hasAggregates, err := translateSelectExprs(sel, schema, cat)
	if err != nil {
		return nil, err
	}

	if hasAggregates {
		allExprs := make([]*Expr, 0, len(groupExprs)+len(aggrExprs))
		allExprs = append(allExprs, groupExprs...)
		allExprs = append(allExprs, aggrExprs...)
		fields, ferr := ExprListToFields(allExprs, p.Schema)
		if ferr != nil {
			return nil, ferr
		}
		p = Aggregate(p, groupExprs, aggrExprs, arrow.NewSchema(fields, nil))
	} else if !isStar && len(projectExprs) > 0 {
		fields, ferr := ExprListToFields(projectExprs, p.Schema)
		if ferr != nil {
			return nil, ferr
		}
		p = Projection(projectExprs, p, arrow.NewSchema(fields, nil))
	}

	// Per spec.md §4.1 step 6, sort expressions resolve against the
	// projection schema (p.Schema is now the Projection/Aggregate output,
	// built above) rather than the pre-projection FROM-relation schema.
	if len(sel.OrderBy) > 0 {
		sortExprs := make([]*Expr, 0, len(sel.OrderBy))
		for _, o := range sel.OrderBy {
			inner, err := translateExpr(o.Expr, p.Schema, cat)
			if err != nil {
				return nil, err
			}
			sortExprs = append(sortExprs, SortKey(inner, o.Direction != sqlparser.DescScr))
		}
		p = Sort(sortExprs, p, p.Schema)
	}

	if sel.Limit != nil {
		limitExpr, err := translateLimit(sel.Limit)
		if err != nil {
			return nil, err
		}
		p = Limit(limitExpr, p, p.Schema)
	}

	return p, nil
}

func extractTableName(t sqlparser.TableExpr) (string, error) {
	aliased, ok := t.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", golaperr.Newf(golaperr.General, "unsupported FROM clause")
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", golaperr.Newf(golaperr.General, "unsupported FROM clause")
	}
	return trimIdent(name.Name.String()), nil
}

func trimIdent(s string) string {
	return strings.Trim(s, "`\"")
}

// translateSelectExprs separates SELECT-list entries into aggregate
// expressions (for an Aggregate node) versus plain column expressions
// (for a Projection node), matching the teacher's parseSelectExprs. Per
// SPEC_FULL.md's resolution of spec.md §9 open question 5, any
// non-aggregate expression that appears alongside an aggregate is
// silently dropped from the output rather than rejected, reproducing the
// distilled spec's own gap rather than fixing it.
func translateSelectExprs(sel *sqlparser.Select, schema *arrow.Schema, cat Catalog) (aggrExprs, groupExprs, projectExprs []*Expr, isStar, hasAggregates bool, err error) {
	for _, se := range sel.SelectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			isStar = true
		case *sqlparser.AliasedExpr:
			if fn, ok := e.Expr.(*sqlparser.FuncExpr); ok && isAggregateFuncName(fn.Name.String()) {
				hasAggregates = true
				ae, aerr := translateAggregateFunc(fn, schema, cat)
				if aerr != nil {
					return nil, nil, nil, false, false, aerr
				}
				aggrExprs = append(aggrExprs, ae)
				continue
			}
			expr, terr := translateExpr(e.Expr, schema, cat)
			if terr != nil {
				return nil, nil, nil, false, false, terr
			}
			projectExprs = append(projectExprs, expr)
		}
	}

	for _, g := range sel.GroupBy {
		expr, terr := translateExpr(g, schema, cat)
		if terr != nil {
			return nil, nil, nil, false, false, terr
		}
		groupExprs = append(groupExprs, expr)
	}

	return aggrExprs, groupExprs, projectExprs, isStar, hasAggregates, nil
}

func isAggregateFuncName(name string) bool {
	switch strings.ToUpper(name) {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
		return true
	default:
		return false
	}
}

// translateAggregateFunc translates a single aggregate call. COUNT(*) is
// represented as COUNT(#0), per SPEC_FULL.md's resolution of spec.md §9
// open question 4 (reproducing the teacher's COUNT(*) semantic gap
// rather than fixing it: it counts column 0's non-nulls, not rows).
func translateAggregateFunc(fn *sqlparser.FuncExpr, schema *arrow.Schema, cat Catalog) (*Expr, error) {
	name := strings.ToUpper(fn.Name.String())

	var arg *Expr
	if len(fn.Exprs) > 0 {
		switch a := fn.Exprs[0].(type) {
		case *sqlparser.StarExpr:
			arg = Column(0)
		case *sqlparser.AliasedExpr:
			translated, err := translateExpr(a.Expr, schema, cat)
			if err != nil {
				return nil, err
			}
			arg = translated
		}
	}
	if arg == nil {
		arg = Column(0)
	}

	var returnType arrow.DataType
	switch name {
	case "MIN", "MAX":
		dt, err := GetType(arg, schema)
		if err != nil {
			return nil, err
		}
		returnType = dt
	case "SUM", "AVG":
		returnType = arrow.PrimitiveTypes.Float64
	case "COUNT":
		returnType = arrow.PrimitiveTypes.Int64
	default:
		return nil, golaperr.Newf(golaperr.General, "Invalid aggregate function '%s'", name)
	}

	return AggregateFunction(name, []*Expr{arg}, returnType), nil
}

func translateLimit(l *sqlparser.Limit) (*Expr, error) {
	if l.Rowcount == nil {
		return nil, golaperr.Newf(golaperr.General, "LIMIT requires a value")
	}
	val, ok := l.Rowcount.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return nil, golaperr.Newf(golaperr.General, "Limit only support positive integer literals")
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	if err != nil || n < 0 {
		return nil, golaperr.Newf(golaperr.General, "Limit only support positive integer literals")
	}
	return Lit(sqltypes.NewInt64(n)), nil
}

// translateExpr translates a scalar sqlparser.Expr into a plan.Expr,
// resolving identifiers against schema and function calls against cat.
func translateExpr(expr sqlparser.Expr, schema *arrow.Schema, cat Catalog) (*Expr, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		return translateBinary(e.Left, sqltypes.And, e.Right, schema, cat)
	case *sqlparser.OrExpr:
		return translateBinary(e.Left, sqltypes.Or, e.Right, schema, cat)
	case *sqlparser.NotExpr:
		inner, err := translateExpr(e.Expr, schema, cat)
		if err != nil {
			return nil, err
		}
		return Binary(inner, sqltypes.Not, inner), nil
	case *sqlparser.ParenExpr:
		return translateExpr(e.Expr, schema, cat)
	case *sqlparser.ComparisonExpr:
		op, err := translateComparisonOp(e.Operator)
		if err != nil {
			return nil, err
		}
		return translateBinary(e.Left, op, e.Right, schema, cat)
	case *sqlparser.IsExpr:
		inner, err := translateExpr(e.Expr, schema, cat)
		if err != nil {
			return nil, err
		}
		switch e.Operator {
		case sqlparser.IsNullStr:
			return IsNull(inner), nil
		case sqlparser.IsNotNullStr:
			return IsNotNull(inner), nil
		default:
			return nil, golaperr.Newf(golaperr.NotImplemented, "unsupported IS operator: %s", e.Operator)
		}
	case *sqlparser.BinaryExpr:
		op, err := translateArithOp(e.Operator)
		if err != nil {
			return nil, err
		}
		return translateBinary(e.Left, op, e.Right, schema, cat)
	case *sqlparser.ColName:
		return translateColName(e, schema)
	case *sqlparser.SQLVal:
		return translateLiteral(e)
	case *sqlparser.FuncExpr:
		return translateScalarFunc(e, schema, cat)
	case *sqlparser.NullVal:
		return Lit(sqltypes.ScalarValue{}), nil
	case *sqlparser.ConvertExpr:
		inner, err := translateExpr(e.Expr, schema, cat)
		if err != nil {
			return nil, err
		}
		dt, err := convertDataType(e.Type)
		if err != nil {
			return nil, err
		}
		return Cast(inner, dt), nil
	default:
		return nil, golaperr.Newf(golaperr.NotImplemented, "unsupported expression type: %T", expr)
	}
}

func translateBinary(l sqlparser.Expr, op sqltypes.Operator, r sqlparser.Expr, schema *arrow.Schema, cat Catalog) (*Expr, error) {
	left, err := translateExpr(l, schema, cat)
	if err != nil {
		return nil, err
	}
	right, err := translateExpr(r, schema, cat)
	if err != nil {
		return nil, err
	}
	if op == sqltypes.And || op == sqltypes.Or {
		return Binary(left, op, right), nil
	}

	leftType, err := GetType(left, schema)
	if err != nil {
		return nil, err
	}
	rightType, err := GetType(right, schema)
	if err != nil {
		return nil, err
	}
	super, ok := Supertype(leftType, rightType)
	if !ok {
		return nil, golaperr.Newf(golaperr.General, "No common supertype found for binary operator %s with input types %s and %s", op, leftType, rightType)
	}
	left, err = CastTo(left, super, schema)
	if err != nil {
		return nil, err
	}
	right, err = CastTo(right, super, schema)
	if err != nil {
		return nil, err
	}
	return Binary(left, op, right), nil
}

func translateComparisonOp(op string) (sqltypes.Operator, error) {
	switch op {
	case sqlparser.EqualStr:
		return sqltypes.Eq, nil
	case sqlparser.NotEqualStr:
		return sqltypes.NotEq, nil
	case sqlparser.LessThanStr:
		return sqltypes.Lt, nil
	case sqlparser.LessEqualStr:
		return sqltypes.LtEq, nil
	case sqlparser.GreaterThanStr:
		return sqltypes.Gt, nil
	case sqlparser.GreaterEqualStr:
		return sqltypes.GtEq, nil
	case sqlparser.LikeStr:
		return sqltypes.Like, nil
	case sqlparser.NotLikeStr:
		return sqltypes.NotLike, nil
	default:
		return 0, golaperr.Newf(golaperr.NotImplemented, "unsupported comparison operator: %s", op)
	}
}

func translateArithOp(op string) (sqltypes.Operator, error) {
	switch op {
	case sqlparser.PlusStr:
		return sqltypes.Plus, nil
	case sqlparser.MinusStr:
		return sqltypes.Minus, nil
	case sqlparser.MultStr:
		return sqltypes.Multiply, nil
	case sqlparser.DivStr:
		return sqltypes.Divide, nil
	case sqlparser.ModStr:
		return sqltypes.Modulus, nil
	default:
		return 0, golaperr.Newf(golaperr.NotImplemented, "unsupported arithmetic operator: %s", op)
	}
}

func translateColName(c *sqlparser.ColName, schema *arrow.Schema) (*Expr, error) {
	name := trimIdent(c.Name.String())
	for i, f := range schema.Fields() {
		if f.Name == name {
			return Column(i), nil
		}
	}
	return nil, golaperr.Newf(golaperr.General, "Invalid identifier '%s' for schema %s", name, schema)
}

// convertDataType maps a CAST/CONVERT target type keyword to its Arrow
// equivalent, per spec.md §6: SmallInt->Int16, Int->Int32, BigInt->Int64,
// Float/Real/Double->Float64, Char/Varchar->Utf8.
func convertDataType(t *sqlparser.ConvertType) (arrow.DataType, error) {
	switch strings.ToUpper(t.Type) {
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int16, nil
	case "INT", "INTEGER":
		return arrow.PrimitiveTypes.Int32, nil
	case "BIGINT":
		return arrow.PrimitiveTypes.Int64, nil
	case "FLOAT", "REAL", "DOUBLE":
		return arrow.PrimitiveTypes.Float64, nil
	case "CHAR", "VARCHAR":
		return arrow.BinaryTypes.String, nil
	default:
		return nil, golaperr.Newf(golaperr.NotImplemented, "unsupported CAST target type: %s", t.Type)
	}
}

func translateLiteral(v *sqlparser.SQLVal) (*Expr, error) {
	switch v.Type {
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return nil, golaperr.Wrap(golaperr.Parse, err, "invalid integer literal")
		}
		return Lit(sqltypes.NewInt64(n)), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, golaperr.Wrap(golaperr.Parse, err, "invalid float literal")
		}
		return Lit(sqltypes.NewFloat64(f)), nil
	case sqlparser.StrVal:
		return Lit(sqltypes.NewUtf8(string(v.Val))), nil
	default:
		return Lit(sqltypes.NewUtf8(string(v.Val))), nil
	}
}

func translateScalarFunc(fn *sqlparser.FuncExpr, schema *arrow.Schema, cat Catalog) (*Expr, error) {
	name := strings.ToLower(fn.Name.String())
	meta, ok := cat.GetFunctionMeta(name)
	if !ok {
		return nil, golaperr.Newf(golaperr.General, "Invalid function '%s'", fn.Name.String())
	}

	args := make([]*Expr, 0, len(fn.Exprs))
	for _, se := range fn.Exprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, golaperr.Newf(golaperr.NotImplemented, "unsupported function argument in %s", fn.Name.String())
		}
		argExpr, err := translateExpr(aliased.Expr, schema, cat)
		if err != nil {
			return nil, err
		}
		if len(meta.Args) > 0 && len(args) < len(meta.Args) {
			argExpr, err = CastTo(argExpr, meta.Args[len(args)].Type, schema)
			if err != nil {
				return nil, err
			}
		}
		args = append(args, argExpr)
	}

	return ScalarFunction(name, args, meta.ReturnType), nil
}
