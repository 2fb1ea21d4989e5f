package types

// SelectPayload carries a SELECT statement's parsed shape from the query
// parser to the storage engine: which table, which columns, an optional
// single-column WHERE equality filter, and an optional join.
type SelectPayload struct {
	Table     string   `json:"table"`
	Columns   []string `json:"columns,omitempty"`
	WhereCol  string   `json:"where_col,omitempty"`
	WhereVal  string   `json:"where_val,omitempty"`
	JoinTable string   `json:"join_table,omitempty"`
	JoinType  string   `json:"join_type,omitempty"`
	LeftCol   string   `json:"left_col,omitempty"`
	RightCol  string   `json:"right_col,omitempty"`
}

// Expression node types for UpdatePayload.SetExprs / WhereExpr.
const (
	ExprLiteral = iota
	ExprColumn
	ExprBinary
	ExprComparison
)

// ExpressionNode is a tiny expression tree: a literal, a column reference,
// an arithmetic binary op, or a comparison — enough to express SET
// assignments and a WHERE clause without pulling in a full SQL AST.
type ExpressionNode struct {
	Type    int             `json:"type"`
	Literal string          `json:"literal,omitempty"`
	Column  string          `json:"column,omitempty"`
	Op      string          `json:"op,omitempty"`
	Left    *ExpressionNode `json:"left,omitempty"`
	Right   *ExpressionNode `json:"right,omitempty"`
}

// UpdatePayload carries an UPDATE statement's SET assignments and optional
// WHERE condition from the query parser to the storage engine.
type UpdatePayload struct {
	Table     string                    `json:"table"`
	SetExprs  map[string]ExpressionNode `json:"set_exprs"`
	WhereExpr *ExpressionNode           `json:"where_expr,omitempty"`
}
