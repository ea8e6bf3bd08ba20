/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ddl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/spf13/cast"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/types"
)

// LanguageExpr is the only procedural language CREATE FUNCTION accepts.
const LanguageExpr = "expr"

// absent is the catalog marker for an unset callback.
const absent = "-"

var (
	ErrUnsupportedStatement = errors.New("unsupported statement")
	ErrUnsupportedLanguage  = errors.New("unsupported function language")
	ErrUnknownAttribute     = errors.New("unrecognized aggregate attribute")
)

// StatementKind identifies what a parsed statement does.
type StatementKind int

const (
	CreateAggregate StatementKind = iota
	CreateFunction
	DropAggregate
)

func (k StatementKind) String() string {
	switch k {
	case CreateAggregate:
		return "CREATE AGGREGATE"
	case CreateFunction:
		return "CREATE FUNCTION"
	case DropAggregate:
		return "DROP AGGREGATE"
	}
	return "UNKNOWN"
}

// Statement is one parsed definition statement. Exactly one of Aggregate,
// Function or Drop is meaningful, according to Kind.
type Statement struct {
	Kind      StatementKind
	Aggregate aggregate.Spec
	Function  functions.ExprSpec
	// Drop lists the aggregate identifiers a DROP AGGREGATE removes.
	Drop      []string
	MissingOk bool
	// Replace is set by CREATE OR REPLACE.
	Replace bool
}

// Parse parses a script of CREATE AGGREGATE, CREATE FUNCTION ... LANGUAGE
// expr and DROP AGGREGATE statements.
func Parse(sql string) ([]Statement, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("pg_query parse error: %w", err)
	}

	var out []Statement
	for i, raw := range result.Stmts {
		if raw.Stmt == nil {
			continue
		}
		stmt, err := parseStatement(raw.Stmt)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

// ParseAggregate parses a single CREATE AGGREGATE statement.
func ParseAggregate(sql string) (aggregate.Spec, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return aggregate.Spec{}, err
	}
	if len(stmts) != 1 || stmts[0].Kind != CreateAggregate {
		return aggregate.Spec{}, fmt.Errorf("%w: expected a single CREATE AGGREGATE", ErrUnsupportedStatement)
	}
	return stmts[0].Aggregate, nil
}

func parseStatement(node *pg_query.Node) (Statement, error) {
	switch n := node.Node.(type) {
	case *pg_query.Node_DefineStmt:
		if n.DefineStmt.Kind != pg_query.ObjectType_OBJECT_AGGREGATE {
			return Statement{}, fmt.Errorf("%w: CREATE %s", ErrUnsupportedStatement, objectName(n.DefineStmt.Kind))
		}
		spec, err := parseCreateAggregate(n.DefineStmt)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: CreateAggregate, Aggregate: spec, Replace: n.DefineStmt.Replace}, nil
	case *pg_query.Node_CreateFunctionStmt:
		fn, err := parseCreateFunction(n.CreateFunctionStmt)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: CreateFunction, Function: fn, Replace: n.CreateFunctionStmt.Replace}, nil
	case *pg_query.Node_DropStmt:
		if n.DropStmt.RemoveType != pg_query.ObjectType_OBJECT_AGGREGATE {
			return Statement{}, fmt.Errorf("%w: DROP %s", ErrUnsupportedStatement, objectName(n.DropStmt.RemoveType))
		}
		ids, err := parseDropAggregate(n.DropStmt)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: DropAggregate, Drop: ids, MissingOk: n.DropStmt.MissingOk}, nil
	}
	return Statement{}, fmt.Errorf("%w: %T", ErrUnsupportedStatement, node.Node)
}

func objectName(t pg_query.ObjectType) string {
	return strings.TrimPrefix(t.String(), "OBJECT_")
}

// lastName returns the unqualified name of a possibly schema-qualified list.
func lastName(names []*pg_query.Node) string {
	for i := len(names) - 1; i >= 0; i-- {
		if str := names[i].GetString_(); str != nil {
			return str.Sval
		}
	}
	return ""
}

func typeName(tn *pg_query.TypeName) string {
	if tn == nil {
		return ""
	}
	name := lastName(tn.Names)
	if len(tn.ArrayBounds) > 0 {
		name += "[]"
	}
	return types.Normalize(name)
}

func parseCreateAggregate(stmt *pg_query.DefineStmt) (aggregate.Spec, error) {
	spec := aggregate.Spec{Name: lastName(stmt.Defnames), Kind: aggregate.KindNormal}
	if spec.Name == "" {
		return spec, errors.New("aggregate name missing")
	}

	if !stmt.Oldstyle {
		args, direct := aggregateArgs(stmt.Args)
		spec.ArgTypes = args
		if direct >= 0 {
			spec.Kind = aggregate.KindOrderedSet
			spec.NumDirectArgs = direct
		}
	}

	for _, def := range stmt.Definition {
		elem := def.GetDefElem()
		if elem == nil {
			continue
		}
		if err := applyAttribute(&spec, elem, stmt.Oldstyle); err != nil {
			return spec, fmt.Errorf("aggregate %s: %w", spec.Name, err)
		}
	}
	return spec, nil
}

// aggregateArgs decodes the argument list of a new-style definition: the
// parameters followed by the count of direct arguments, -1 for a normal
// aggregate.
func aggregateArgs(args []*pg_query.Node) ([]string, int) {
	direct := -1
	if len(args) == 0 {
		return nil, direct
	}
	var out []string
	if list := args[0].GetList(); list != nil {
		for _, item := range list.Items {
			if param := item.GetFunctionParameter(); param != nil && param.ArgType != nil {
				out = append(out, typeName(param.ArgType))
			}
		}
	}
	if len(args) > 1 {
		if n := args[1].GetInteger(); n != nil {
			direct = int(n.Ival)
		}
	}
	return out, direct
}

func applyAttribute(spec *aggregate.Spec, elem *pg_query.DefElem, oldstyle bool) error {
	name := strings.ToLower(elem.Defname)
	switch name {
	case "sfunc", "sfunc1":
		spec.TransFn = procName(elem.Arg)
	case "stype", "stype1":
		spec.TransType = typeArg(elem.Arg)
	case "sspace":
		return intArg(elem, &spec.TransSpace)
	case "finalfunc":
		spec.FinalFn = procName(elem.Arg)
	case "finalfunc_extra":
		return boolArg(elem, &spec.FinalExtra)
	case "combinefunc":
		spec.CombineFn = procName(elem.Arg)
	case "serialfunc":
		spec.SerialFn = procName(elem.Arg)
	case "deserialfunc":
		spec.DeserialFn = procName(elem.Arg)
	case "initcond", "initcond1":
		v := stringArg(elem.Arg)
		spec.InitValue = &v
	case "msfunc":
		spec.MTransFn = procName(elem.Arg)
	case "minvfunc":
		spec.MInvTransFn = procName(elem.Arg)
	case "mfinalfunc":
		spec.MFinalFn = procName(elem.Arg)
	case "mfinalfunc_extra":
		return boolArg(elem, &spec.MFinalExtra)
	case "mstype":
		spec.MTransType = typeArg(elem.Arg)
	case "msspace":
		return intArg(elem, &spec.MTransSpace)
	case "minitcond":
		v := stringArg(elem.Arg)
		spec.MInitValue = &v
	case "sortop":
		spec.SortOp = operatorArg(elem.Arg)
	case "hypothetical":
		var hypothetical bool
		if err := boolArg(elem, &hypothetical); err != nil {
			return err
		}
		if hypothetical {
			spec.Kind = aggregate.KindHypothetical
		}
	case "returns":
		spec.ResultType = typeArg(elem.Arg)
	case "basetype":
		if !oldstyle {
			return fmt.Errorf("%w: basetype is only valid in the old syntax", ErrUnknownAttribute)
		}
		if t := typeArg(elem.Arg); t != "" && t != types.NameAny {
			spec.ArgTypes = []string{t}
		}
	case "finalfunc_modify", "mfinalfunc_modify", "parallel":
		// planner hints, no execution semantics
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, elem.Defname)
	}
	return nil
}

// stringArg renders a definition argument the way it was written: string
// constants verbatim, numbers in their literal form, names unqualified.
func stringArg(node *pg_query.Node) string {
	if node == nil {
		return ""
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_String_:
		return n.String_.Sval
	case *pg_query.Node_Integer:
		return strconv.FormatInt(int64(n.Integer.Ival), 10)
	case *pg_query.Node_Float:
		return n.Float.Fval
	case *pg_query.Node_Boolean:
		return strconv.FormatBool(n.Boolean.Boolval)
	case *pg_query.Node_TypeName:
		return lastName(n.TypeName.Names)
	case *pg_query.Node_List:
		return lastName(n.List.Items)
	case *pg_query.Node_AConst:
		switch val := n.AConst.Val.(type) {
		case *pg_query.A_Const_Sval:
			return val.Sval.Sval
		case *pg_query.A_Const_Ival:
			return strconv.FormatInt(int64(val.Ival.Ival), 10)
		case *pg_query.A_Const_Fval:
			return val.Fval.Fval
		}
	}
	return ""
}

func procName(node *pg_query.Node) string {
	name := stringArg(node)
	if name == absent {
		return ""
	}
	return name
}

func typeArg(node *pg_query.Node) string {
	if tn := node.GetTypeName(); tn != nil {
		return typeName(tn)
	}
	return types.Normalize(stringArg(node))
}

// operatorArg accepts both "sortop = >" and "sortop = operator(pg_catalog.>)".
func operatorArg(node *pg_query.Node) string {
	return stringArg(node)
}

func intArg(elem *pg_query.DefElem, dst *int) error {
	v, err := cast.ToIntE(stringArg(elem.Arg))
	if err != nil {
		return fmt.Errorf("%s requires an integer value: %w", elem.Defname, err)
	}
	*dst = v
	return nil
}

// boolArg treats a bare attribute as true.
func boolArg(elem *pg_query.DefElem, dst *bool) error {
	if elem.Arg == nil {
		*dst = true
		return nil
	}
	v, err := cast.ToBoolE(stringArg(elem.Arg))
	if err != nil {
		return fmt.Errorf("%s requires a Boolean value: %w", elem.Defname, err)
	}
	*dst = v
	return nil
}

func parseCreateFunction(stmt *pg_query.CreateFunctionStmt) (functions.ExprSpec, error) {
	spec := functions.ExprSpec{Name: lastName(stmt.Funcname)}
	if stmt.IsProcedure {
		return spec, fmt.Errorf("%w: CREATE PROCEDURE", ErrUnsupportedStatement)
	}
	if spec.Name == "" {
		return spec, errors.New("function name missing")
	}

	for _, param := range stmt.Parameters {
		fp := param.GetFunctionParameter()
		if fp == nil {
			continue
		}
		switch fp.Mode {
		case pg_query.FunctionParameterMode_FUNC_PARAM_OUT, pg_query.FunctionParameterMode_FUNC_PARAM_TABLE:
			continue
		}
		spec.ArgTypes = append(spec.ArgTypes, typeName(fp.ArgType))
	}
	if stmt.ReturnType == nil {
		return spec, fmt.Errorf("function %s: RETURNS clause required", spec.Name)
	}
	spec.RetType = typeName(stmt.ReturnType)

	language := ""
	for _, option := range stmt.Options {
		elem := option.GetDefElem()
		if elem == nil {
			continue
		}
		switch elem.Defname {
		case "language":
			language = strings.ToLower(stringArg(elem.Arg))
		case "strict":
			if err := boolArg(elem, &spec.Strict); err != nil {
				return spec, err
			}
		case "as":
			spec.Expression = functionBody(elem.Arg)
		}
	}
	if language != LanguageExpr {
		return spec, fmt.Errorf("%w: function %s uses %q, only %q is supported", ErrUnsupportedLanguage, spec.Name, language, LanguageExpr)
	}
	if strings.TrimSpace(spec.Expression) == "" {
		return spec, fmt.Errorf("function %s: empty body", spec.Name)
	}
	return spec, nil
}

func functionBody(node *pg_query.Node) string {
	if list := node.GetList(); list != nil {
		var parts []string
		for _, item := range list.Items {
			if s := stringArg(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return stringArg(node)
}

func parseDropAggregate(stmt *pg_query.DropStmt) ([]string, error) {
	var ids []string
	for _, obj := range stmt.Objects {
		owa := obj.GetObjectWithArgs()
		if owa == nil {
			return nil, errors.New("DROP AGGREGATE requires an argument list")
		}
		var args []string
		for _, arg := range owa.Objargs {
			if tn := arg.GetTypeName(); tn != nil {
				args = append(args, typeName(tn))
			}
		}
		spec := aggregate.Spec{Name: lastName(owa.Objname), ArgTypes: args}
		ids = append(ids, spec.ID())
	}
	return ids, nil
}
