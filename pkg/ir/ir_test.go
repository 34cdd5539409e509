package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type universe struct {
	owner  *jvm.Type
	ctor   *jvm.Method
	get    *jvm.Method
	static *jvm.Method
	run    *jvm.Method
	guard  *jvm.Field
	slot   *jvm.Field
}

func newUniverse() *universe {
	u := &universe{}
	u.owner = jvm.NewType("l.Box", jvm.KindClass, jvm.Public, jvm.ObjectClass, jvm.Library)
	u.ctor = u.owner.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	u.get = u.owner.AddMethod(jvm.NewMethod("get", []jvm.TypeRef{jvm.Int, jvm.String}, jvm.Object, jvm.Public))
	u.static = u.owner.AddMethod(jvm.NewMethod("make", nil, jvm.Object, jvm.Public|jvm.Static))
	u.run = u.owner.AddMethod(jvm.NewMethod("run", nil, jvm.Void, jvm.Public))
	u.guard = u.owner.AddField(jvm.NewField("guard", jvm.Boolean, jvm.Public|jvm.Static))
	u.slot = u.owner.AddField(jvm.NewField("slot", jvm.Object, jvm.Public))
	return u
}

func TestBuilderIdentityPrefix(t *testing.T) {
	u := newUniverse()
	b := NewBuilder(u.get)
	require.NotNil(t, b.This())
	require.Len(t, b.Params(), 2)
	assert.Equal(t, "r0", b.This().Name)
	assert.Equal(t, "i0", b.Params()[0].Name)
	assert.Equal(t, "r1", b.Params()[1].Name)

	b.Return(Null(jvm.Object))
	require.NoError(t, Finish(b.Body()))
	assert.Len(t, b.Body().Stmts, 4)

	sb := NewBuilder(u.static)
	assert.Nil(t, sb.This())
	sb.Return(sb.New(u.owner.Ref(), u.ctor))
	require.NoError(t, Finish(sb.Body()))
}

func TestGuardedBlockSurvivesFooter(t *testing.T) {
	u := newUniverse()
	b := NewBuilder(u.run)
	end := b.Label("end")
	z := b.Load(&StaticFieldRef{Field: u.guard})
	b.If(z, end)
	obj := b.New(u.owner.Ref(), u.ctor)
	b.Store(&InstanceFieldRef{Base: b.This(), Field: u.slot}, obj)
	b.Place(end)
	b.Return(nil)

	body := b.Body()
	require.NoError(t, Finish(body))

	for _, s := range body.Stmts {
		_, isNop := s.(*NopStmt)
		assert.False(t, isNop)
	}
	var ifs []*IfStmt
	for _, s := range body.Stmts {
		if st, ok := s.(*IfStmt); ok {
			ifs = append(ifs, st)
		}
	}
	require.Len(t, ifs, 1)
	assert.IsType(t, &ReturnStmt{}, ifs[0].Target)
	assert.Len(t, body.CallsTo(u.ctor), 1)
}

func TestNormalizeJumpsCollapsesChains(t *testing.T) {
	u := newUniverse()
	b := NewBuilder(u.run)
	ret := &ReturnStmt{}
	hop2 := &GotoStmt{Target: ret}
	hop1 := &GotoStmt{Target: hop2}
	z := b.Load(&StaticFieldRef{Field: u.guard})
	cond := b.If(z, hop1)
	b.Add(&GotoStmt{Target: ret})
	b.Add(hop1)
	b.Add(hop2)
	b.Add(ret)

	NormalizeJumps(b.Body())
	assert.Same(t, ret, cond.Target)
	// the hop gotos jumped to their successors and are gone, as is the
	// unconditional goto after the branch.
	for _, s := range b.Body().Stmts {
		_, isGoto := s.(*GotoStmt)
		assert.False(t, isGoto, s.String())
	}
	require.NoError(t, b.Body().Validate())
}

func TestEliminateNopsKeepsTargetedTrailingLabel(t *testing.T) {
	u := newUniverse()
	body := &Body{Method: u.static}
	tail := &NopStmt{Name: "tail"}
	loose := &NopStmt{}
	z := &Local{Name: "z0", Typ: jvm.Boolean}
	body.Locals = []*Local{z}
	body.Stmts = []Stmt{
		&AssignStmt{LHS: z, RHS: &StaticFieldRef{Field: u.guard}},
		loose,
		&IfStmt{Cond: z, Target: tail},
		tail,
	}
	EliminateNops(body)
	assert.Len(t, body.Stmts, 3)
	assert.Same(t, tail, body.Stmts[2])
	assert.Error(t, body.Validate(), "a nop at the end falls through")
}

func TestValidateReportsProblems(t *testing.T) {
	u := newUniverse()
	stray := &Local{Name: "x9", Typ: jvm.Object}

	tests := []struct {
		name  string
		build func(b *Builder)
		want  string
	}{
		{
			name:  "falls off end",
			build: func(b *Builder) { b.Invoke(Virtual, b.This(), u.run) },
			want:  "falls off the end",
		},
		{
			name:  "undeclared local",
			build: func(b *Builder) { b.Add(&ThrowStmt{Value: stray}) },
			want:  "undeclared local x9",
		},
		{
			name: "arity",
			build: func(b *Builder) {
				b.Add(&InvokeStmt{Expr: &InvokeExpr{Kind: Virtual, Base: b.This(), Method: u.get}})
				b.Return(nil)
			},
			want: "0 arguments for 2 parameters",
		},
		{
			name: "static mismatch",
			build: func(b *Builder) {
				b.Add(&InvokeStmt{Expr: &InvokeExpr{Kind: Virtual, Base: b.This(), Method: u.static}})
				b.Return(nil)
			},
			want: "virtualinvoke of static method",
		},
		{
			name: "field store needs operand",
			build: func(b *Builder) {
				b.Assign(&InstanceFieldRef{Base: b.This(), Field: u.slot}, &NewExpr{Class: u.owner.Ref()})
				b.Return(nil)
			},
			want: "is not a local or constant",
		},
		{
			name: "static access",
			build: func(b *Builder) {
				b.Assign(&StaticFieldRef{Field: u.slot}, Null(jvm.Object))
				b.Return(nil)
			},
			want: "static access to instance field",
		},
		{
			name: "return value from void",
			build: func(b *Builder) {
				b.Return(IntConst(1))
			},
			want: "value returned from void method",
		},
		{
			name: "unreachable",
			build: func(b *Builder) {
				b.Return(nil)
				b.Return(nil)
			},
			want: "unreachable",
		},
		{
			name: "missing target",
			build: func(b *Builder) {
				b.Goto(&ReturnStmt{})
			},
			want: "jump target not in body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(u.run)
			tt.build(b)
			err := b.Body().Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateRequiresIdentities(t *testing.T) {
	u := newUniverse()
	body := &Body{Method: u.run, Stmts: []Stmt{&ReturnStmt{}}}
	err := body.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@this")

	assert.ErrorIs(t, (&Body{}).Validate(), ErrEmptyBody)
}

func TestReturnTypeKinds(t *testing.T) {
	u := newUniverse()
	b := NewBuilder(u.get)
	b.Return(IntConst(0))
	err := b.Body().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returns int from java.lang.Object method")
}

func TestPrintLabelsTargets(t *testing.T) {
	u := newUniverse()
	b := NewBuilder(u.run)
	head := b.Label("head")
	b.Place(head)
	z := b.Load(&StaticFieldRef{Field: u.guard})
	b.Invoke(Virtual, b.This(), u.run)
	b.If(z, head)
	b.Return(nil)
	require.NoError(t, Finish(b.Body()))

	out := b.Body().String()
	assert.Contains(t, out, "public void run()")
	assert.Contains(t, out, "r0 := @this: l.Box;")
	assert.Contains(t, out, "label1:")
	assert.Contains(t, out, "if z0 != 0 goto label1;")
	assert.Contains(t, out, "virtualinvoke r0.<l.Box: void run()>();")
	assert.Equal(t, 1, strings.Count(out, "label1:"))
}

func TestKindFor(t *testing.T) {
	u := newUniverse()
	i := jvm.NewType("l.I", jvm.KindInterface, jvm.Public|jvm.Abstract, jvm.ObjectClass, jvm.Library)
	im := i.AddMethod(jvm.NewMethod("call", nil, jvm.Void, jvm.Public|jvm.Abstract))

	assert.Equal(t, Static, KindFor(u.static))
	assert.Equal(t, Special, KindFor(u.ctor))
	assert.Equal(t, Virtual, KindFor(u.run))
	assert.Equal(t, Interface, KindFor(im))
}

func TestDefaultValue(t *testing.T) {
	assert.Equal(t, "null", DefaultValue(jvm.String).Text)
	assert.Equal(t, "0L", DefaultValue(jvm.TypeRef{Name: "long"}).Text)
	assert.Equal(t, "0", DefaultValue(jvm.Boolean).Text)
	assert.Equal(t, "null", DefaultValue(jvm.ArrayOf(jvm.Int, 1)).Text)
}
