// demo_programs.go - canned ASTs for -demo, standing in for a real parser
//
// These exist solely so main.go has something to hand Generate without a
// lexer/parser collaborator in scope (§1). Each mirrors a tiny test program
// in spirit, not any specific teacher fixture.
package main

var demoPrograms = map[string]func() *File{
	"hello": demoHello,
	"arith": demoArith,
	"loop":  demoLoop,
}

// demoHello mirrors the "Hello, World" testable example: a single string
// literal println, then a clean exit.
func demoHello() *File {
	return &File{
		Path: "<demo:hello>",
		Stmts: []Stmt{
			&FuncDecl{
				Name: "main",
				Body: []Stmt{
					&ExprStmt{X: &CallExpr{Callee: "println", Args: []Expr{
						&StringLiteral{Escaped: "Hello, World!"},
					}}},
					&ExprStmt{X: &CallExpr{Callee: "exit", Args: []Expr{
						&IntLiteral{Value: 0, Type: &Type{Kind: KindInt}},
					}}},
				},
			},
		},
	}
}

// demoArith mirrors the integer-arithmetic testable example: println(2 + 3
// * 4), which only prints the right thing once both "*" and integer
// println are properly lowered.
func demoArith() *File {
	threeTimesFour := &InfixExpr{
		Op:    "*",
		Left:  &IntLiteral{Value: 3, Type: &Type{Kind: KindInt}},
		Right: &IntLiteral{Value: 4, Type: &Type{Kind: KindInt}},
		Type:  &Type{Kind: KindInt},
	}
	sum := &InfixExpr{
		Op:    "+",
		Left:  &IntLiteral{Value: 2, Type: &Type{Kind: KindInt}},
		Right: threeTimesFour,
		Type:  &Type{Kind: KindInt},
	}
	return &File{
		Path: "<demo:arith>",
		Stmts: []Stmt{
			&FuncDecl{
				Name: "main",
				Body: []Stmt{
					&ExprStmt{X: &CallExpr{Callee: "println", Args: []Expr{sum}}},
					&ExprStmt{X: &CallExpr{Callee: "exit", Args: []Expr{
						&IntLiteral{Value: 0, Type: &Type{Kind: KindInt}},
					}}},
				},
			},
		},
	}
}

// demoLoop mirrors the C-style for-with-break testable example: for i :=
// 0; i < 3; i++ { if i == 2 { break }; println(i) }, exercising lowerCond's
// natural condition codes on both the loop test and the if, plus the
// inline decimal-conversion path for println(i).
func demoLoop() *File {
	iIdent := func() *Identifier { return &Identifier{Name: "i", Type: &Type{Kind: KindInt}} }
	return &File{
		Path: "<demo:loop>",
		Stmts: []Stmt{
			&FuncDecl{
				Name: "main",
				Body: []Stmt{
					&ForCStmt{
						Init: &AssignStmt{Name: "i", Value: &IntLiteral{Value: 0, Type: &Type{Kind: KindInt}}},
						Cond: &InfixExpr{
							Op:    "<",
							Left:  iIdent(),
							Right: &IntLiteral{Value: 3, Type: &Type{Kind: KindInt}},
							Type:  &Type{Kind: KindBool},
						},
						Post: &ExprStmt{X: &PostfixExpr{
							Op:      "++",
							Operand: iIdent(),
						}},
						Body: []Stmt{
							&ExprStmt{X: &IfExpr{
								Cond: &InfixExpr{
									Op:    "==",
									Left:  iIdent(),
									Right: &IntLiteral{Value: 2, Type: &Type{Kind: KindInt}},
									Type:  &Type{Kind: KindBool},
								},
								Then: []Stmt{&BranchStmt{IsBreak: true}},
							}},
							&ExprStmt{X: &CallExpr{Callee: "println", Args: []Expr{iIdent()}}},
						},
					},
					&ExprStmt{X: &CallExpr{Callee: "exit", Args: []Expr{
						&IntLiteral{Value: 0, Type: &Type{Kind: KindInt}},
					}}},
				},
			},
		},
	}
}
