package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/universe"
)

const shopSource = `package com.example;

import java.util.List;
import java.util.Map.Entry;
import static java.util.Collections.emptyList;

@Service
public class Shop extends Base implements Runnable, Comparable<Shop> {
    private static final Logger LOG = Logger.create();
    private List<String> items = new ArrayList<>();
    int[] counts, grid[];
    Entry<String, String> last;

    static { init(); }

    public Shop(String name) {
        super(name);
        this.items.add(name);
    }

    public void run() {
        Helper h = new Helper();
        h.help(items);
        for (String s : items) { s.trim(); }
        counts[0]++;
        LOG.info("x");
        Runnable r = () -> go();
        java.util.Collections.sort(items);
        new Thread(this::run).start();
    }

    private static void init() {}
    void go() {}
    <T extends Number> T pick(T... values) { return values[0]; }

    public int compareTo(Shop o) { return 0; }

    static class Helper {
        void help(List<String> xs) { Shop.init(); }
    }

    interface Visitor<R> {
        R visit(Shop s);
        default void done() {}
    }

    enum Mode { ON, OFF }
}
`

func decodeShop(t *testing.T) map[string]universe.TypeDoc {
	t.Helper()
	doc, err := Decode("Shop.java", []byte(shopSource))
	require.NoError(t, err)
	assert.Equal(t, "application", doc.Provenance)

	byName := make(map[string]universe.TypeDoc)
	var order []string
	for _, td := range doc.Types {
		byName[td.Name] = td
		order = append(order, td.Name)
	}
	require.Equal(t, []string{
		"com.example.Shop",
		"com.example.Shop$Helper",
		"com.example.Shop$Visitor",
		"com.example.Shop$Mode",
	}, order)
	return byName
}

func method(t *testing.T, td universe.TypeDoc, name string) universe.MethodDoc {
	t.Helper()
	for _, m := range td.Methods {
		if m.Name == name {
			return m
		}
	}
	require.Failf(t, "missing method", "%s.%s", td.Name, name)
	return universe.MethodDoc{}
}

func field(t *testing.T, td universe.TypeDoc, name string) universe.FieldDoc {
	t.Helper()
	for _, f := range td.Fields {
		if f.Name == name {
			return f
		}
	}
	require.Failf(t, "missing field", "%s.%s", td.Name, name)
	return universe.FieldDoc{}
}

func mref(owner, name string) universe.RefDoc {
	return universe.RefDoc{Kind: "method", Owner: owner, Name: name}
}

func fref(owner, name string) universe.RefDoc {
	return universe.RefDoc{Kind: "field", Owner: owner, Name: name}
}

func TestExtractDeclarations(t *testing.T) {
	types := decodeShop(t)
	shop := types["com.example.Shop"]

	assert.Equal(t, "com.example.Base", shop.Super)
	assert.Equal(t, []string{"java.lang.Runnable", "java.lang.Comparable"}, shop.Interfaces)
	assert.Equal(t, []string{"com.example.Service"}, shop.Annotations)
	assert.Equal(t, []string{"public"}, shop.Modifiers)

	assert.Equal(t, "com.example.Logger", field(t, shop, "LOG").Type)
	assert.ElementsMatch(t, []string{"private", "static", "final"}, field(t, shop, "LOG").Modifiers)
	assert.Equal(t, "java.util.List", field(t, shop, "items").Type)
	assert.Equal(t, "int[]", field(t, shop, "counts").Type)
	assert.Equal(t, "int[][]", field(t, shop, "grid").Type)
	assert.Equal(t, "java.util.Map$Entry", field(t, shop, "last").Type)

	ctor := method(t, shop, jvm.ConstructorName)
	assert.Equal(t, []string{"java.lang.String"}, ctor.Params)

	pick := method(t, shop, "pick")
	assert.Equal(t, []string{"java.lang.Number[]"}, pick.Params, "varargs erase to an array of the bound")
	assert.Equal(t, "java.lang.Number", pick.Returns)

	run := method(t, shop, "run")
	assert.Empty(t, run.Returns)
	assert.Equal(t, "int", method(t, shop, "compareTo").Returns)
}

func TestExtractNestedTypes(t *testing.T) {
	types := decodeShop(t)

	helper := types["com.example.Shop$Helper"]
	assert.Contains(t, helper.Modifiers, "static")
	assert.Equal(t, []string{"java.util.List"}, method(t, helper, "help").Params)
	implicit := method(t, helper, jvm.ConstructorName)
	assert.Empty(t, implicit.Params)
	assert.Contains(t, implicit.Refs, mref(jvm.ObjectClass, jvm.ConstructorName))

	visitor := types["com.example.Shop$Visitor"]
	assert.Equal(t, "interface", visitor.Kind)
	visit := method(t, visitor, "visit")
	assert.Equal(t, "java.lang.Object", visit.Returns, "type variables erase to Object")
	assert.Equal(t, []string{"com.example.Shop"}, visit.Params)
	assert.ElementsMatch(t, []string{"public", "abstract"}, visit.Modifiers)
	assert.NotContains(t, method(t, visitor, "done").Modifiers, "abstract")

	mode := types["com.example.Shop$Mode"]
	assert.Equal(t, jvm.EnumClass, mode.Super)
	assert.Contains(t, mode.Modifiers, "final")
	assert.Equal(t, "com.example.Shop$Mode", field(t, mode, "ON").Type)
	assert.Equal(t, "com.example.Shop$Mode[]", method(t, mode, "values").Returns)
	assert.Equal(t, []string{"private"}, method(t, mode, jvm.ConstructorName).Modifiers)
	assert.Contains(t, method(t, mode, jvm.StaticInitName).Refs, mref("com.example.Shop$Mode", jvm.ConstructorName))
}

func TestExtractReferences(t *testing.T) {
	types := decodeShop(t)
	shop := types["com.example.Shop"]

	ctor := method(t, shop, jvm.ConstructorName).Refs
	assert.Contains(t, ctor, mref("com.example.Base", jvm.ConstructorName))
	assert.NotContains(t, ctor, mref(jvm.ObjectClass, jvm.ConstructorName), "explicit super call replaces the implicit one")
	assert.Contains(t, ctor, mref("com.example.ArrayList", jvm.ConstructorName), "field initializers run in constructors")
	assert.Contains(t, ctor, mref("java.util.List", "add"))
	assert.Contains(t, ctor, fref("com.example.Shop", "items"))

	run := method(t, shop, "run").Refs
	for _, r := range []universe.RefDoc{
		mref("com.example.Shop$Helper", jvm.ConstructorName),
		mref("com.example.Shop$Helper", "help"),
		fref("com.example.Shop", "items"),
		mref(jvm.StringClass, "trim"),
		fref("com.example.Shop", "counts"),
		mref("com.example.Logger", "info"),
		fref("com.example.Shop", "LOG"),
		mref("com.example.Shop", "go"),
		mref("java.util.Collections", "sort"),
		mref("java.lang.Thread", jvm.ConstructorName),
		mref("java.lang.Thread", "start"),
		mref("com.example.Shop", "run"),
	} {
		assert.Contains(t, run, r)
	}
	for _, r := range run {
		assert.NotEqual(t, "java", r.Name, "package names are not field accesses")
		assert.NotEqual(t, "util", r.Name)
	}

	clinit := method(t, shop, jvm.StaticInitName)
	assert.Equal(t, []string{"static"}, clinit.Modifiers)
	assert.Equal(t, []universe.RefDoc{
		mref("com.example.Logger", "create"),
		mref("com.example.Shop", "init"),
	}, clinit.Refs)

	help := method(t, types["com.example.Shop$Helper"], "help").Refs
	assert.Equal(t, []universe.RefDoc{mref("com.example.Shop", "init")}, help)
}

func TestUnknownReceiverUsesWildcardOwner(t *testing.T) {
	src := `class A {
    void m(java.util.function.Supplier<Object> s) {
        s.get().toString();
        Object o = (s);
    }
}`
	doc, err := Decode("A.java", []byte(src))
	require.NoError(t, err)
	require.Len(t, doc.Types, 1)
	assert.Equal(t, "A", doc.Types[0].Name, "the default package keeps simple names")

	m := method(t, doc.Types[0], "m")
	assert.Equal(t, []string{"java.util.function.Supplier"}, m.Params)
	assert.Contains(t, m.Refs, mref("java.util.function.Supplier", "get"))
	assert.Contains(t, m.Refs, mref(jvm.AnyOwner, "toString"))
}

func TestExtractRecord(t *testing.T) {
	doc, err := Decode("P.java", []byte("package geo;\npublic record Point(int x, int y) {}\n"))
	require.NoError(t, err)
	require.Len(t, doc.Types, 1)

	p := doc.Types[0]
	assert.Equal(t, "geo.Point", p.Name)
	assert.Equal(t, "java.lang.Record", p.Super)
	assert.ElementsMatch(t, []string{"private", "final"}, field(t, p, "x").Modifiers)
	assert.Equal(t, "int", method(t, p, "y").Returns)
	assert.Equal(t, []string{"int", "int"}, method(t, p, jvm.ConstructorName).Params)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("Bad.java", []byte("this is not java {{{"))
	assert.ErrorIs(t, err, ErrNoTypes)
}

func TestDocumentConvertsToTypes(t *testing.T) {
	doc, err := Decode("Shop.java", []byte(shopSource))
	require.NoError(t, err)

	rules, err := universe.NewRules([]string{"com.example.*"})
	require.NoError(t, err)
	types, err := doc.Convert(rules)
	require.NoError(t, err)
	require.Len(t, types, 4)

	for _, typ := range types {
		assert.Equal(t, jvm.Application, typ.Provenance, typ.Name)
	}
	assert.True(t, types[2].IsInterface())
	assert.NotNil(t, types[0].Method("java.lang.Number pick(java.lang.Number[])"))
}

func TestLoaderIntegration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Shop.java")
	require.NoError(t, os.WriteFile(path, []byte(shopSource), 0644))

	l := universe.NewLoader(nil)
	l.Register(Extension, Decode)
	files, err := l.Expand([]string{dir})
	require.NoError(t, err)
	require.Equal(t, []string{path}, files)

	types, errs := l.Load(context.Background(), files)
	require.Nil(t, errs)
	assert.Len(t, types, 4)
}

func TestWalkHelpers(t *testing.T) {
	p := New()
	defer p.Close()

	res, err := p.Parse(context.Background(), []byte(shopSource), "Shop.java")
	require.NoError(t, err)
	defer res.Tree.Close()

	methods := FindNodesByType(res.Tree.RootNode(), res.Source, "method_declaration")
	assert.Len(t, methods, 8)
	assert.Equal(t, "init", GetNodeText(methods[1].ChildByFieldName("name"), res.Source))

	assert.True(t, IsJava("a/B.JAVA"))
	assert.False(t, IsJava("a/B.kt"))
}
