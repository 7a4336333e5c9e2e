package xql

// Statement is the interface for all ConfigXQL statements.
type Statement interface {
	Pos() Position
	stmt() // marker method to restrict implementation
}

// Literal is the interface for all literal value nodes.
type Literal interface {
	Pos() Position
	literal() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }

// AssignStmt stores a literal under a key: key = literal.
type AssignStmt struct {
	nodeBase
	Key   string
	Value Literal
}

// GetStmt retrieves a key: key, or key! when Safe.
type GetStmt struct {
	nodeBase
	Key  string
	Safe bool
}

// DeleteStmt removes a key: delete key.
type DeleteStmt struct {
	nodeBase
	Key string
}

func (*AssignStmt) stmt() {}
func (*GetStmt) stmt()    {}
func (*DeleteStmt) stmt() {}

// NullLit is the null literal.
type NullLit struct {
	nodeBase
}

// BoolLit is true or false.
type BoolLit struct {
	nodeBase
	Value bool
}

// IntLit is an integer literal.
type IntLit struct {
	nodeBase
	Value int64
}

// FloatLit is a literal with a decimal point or exponent.
type FloatLit struct {
	nodeBase
	Value float64
}

// StringLit is a double-quoted string with escapes decoded.
type StringLit struct {
	nodeBase
	Value string
}

// ListLit is a bracketed list. Elements may be of any literal kind.
type ListLit struct {
	nodeBase
	Elems []Literal
}

func (*NullLit) literal()   {}
func (*BoolLit) literal()   {}
func (*IntLit) literal()    {}
func (*FloatLit) literal()  {}
func (*StringLit) literal() {}
func (*ListLit) literal()   {}
