package queryir

// Expr represents a node of a filter-expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Trees are immutable once built and evaluation has no side effects.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// BinaryOp names a binary operator.
type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpMod BinaryOp = "mod"

	OpEq BinaryOp = "eq"
	OpNe BinaryOp = "ne"
	OpGe BinaryOp = "ge"
	OpGt BinaryOp = "gt"
	OpLe BinaryOp = "le"
	OpLt BinaryOp = "lt"

	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"

	// OpHas parses but is not evaluated.
	OpHas BinaryOp = "has"
)

// IsArithmetic reports whether op is add/sub/mul/div/mod.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether op is eq/ne/ge/gt/le/lt.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGe, OpGt, OpLe, OpLt:
		return true
	}
	return false
}

// IsLogical reports whether op is and/or.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp names a unary operator.
type UnaryOp string

const (
	OpNot   UnaryOp = "not"
	OpMinus UnaryOp = "minus"
)

// Binary applies Op to two operands.
//
// Example:
//
//	Binary{Op: OpGt, Left: Member{Path: []string{"CostPerUnit"}}, Right: MustLiteral(KindNumber, "100")}
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) exprNode() {}

// Unary applies Op to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (Unary) exprNode() {}

// Member references a record property. Only single-segment paths are
// evaluable; navigation paths such as Policy/ProductName are not.
type Member struct {
	Path []string
}

func (Member) exprNode() {}

// Prop is a shorthand for a single-segment Member.
func Prop(name string) Member {
	return Member{Path: []string{name}}
}

// Call invokes a built-in function. Only contains(a, b) is evaluable.
type Call struct {
	Name string
	Args []Expr
}

func (Call) exprNode() {}

// TypeLiteral is a type name used as an expression (isof, cast).
type TypeLiteral struct {
	Name string
}

func (TypeLiteral) exprNode() {}

// LambdaRef references a lambda variable inside any/all.
type LambdaRef struct {
	Name string
}

func (LambdaRef) exprNode() {}

// Alias references a parameter alias such as @p1.
type Alias struct {
	Name string
}

func (Alias) exprNode() {}

// Enum is a namespaced enumeration literal.
type Enum struct {
	Type  string
	Value string
}

func (Enum) exprNode() {}

// OrderKey is one ordering criterion.
type OrderKey struct {
	Property   string
	Descending bool
}

// Options are the parsed query options for a collection read.
// Nil Skip/Top mean "not supplied".
type Options struct {
	Filter  Expr
	OrderBy []OrderKey
	Skip    *int
	Top     *int
	Count   bool
	Select  []string
	Expand  []string
}

// IntPtr returns a pointer to n, for Skip and Top.
func IntPtr(n int) *int {
	return &n
}

// KeyPredicate is one name/value pair from a resource path key segment.
// Value is already unquoted. An empty Name refers to the key field.
type KeyPredicate struct {
	Name  string
	Value string
}
