package integration

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bytebasic-dev/bytebasic/cas"
	"github.com/bytebasic-dev/bytebasic/compile"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factSource = `
def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)

total = 0
for i in range(5):
    total += fact(i)
print(total)
`

// imageRoundTrip serializes every program and reads it back, the way a
// program travels from "bvm image" to "bvm run".
func imageRoundTrip(t *testing.T, progs []*vm.Bytecode) []*vm.Bytecode {
	t.Helper()
	out := make([]*vm.Bytecode, len(progs))
	for i, p := range progs {
		var buf bytes.Buffer
		require.NoError(t, p.Serialize(&buf))
		out[i] = &vm.Bytecode{}
		require.NoError(t, out[i].Deserialize(&buf))
	}
	return out
}

func TestCompiledProgramSurvivesImages(t *testing.T) {
	progs, err := compile.File("main", strings.NewReader(factSource))
	require.NoError(t, err)
	loaded := imageRoundTrip(t, progs)

	rt := interp.NewRuntime(nil)
	for _, p := range loaded {
		require.NoError(t, rt.Register(p))
	}

	var out bytes.Buffer
	s := rt.NewSession(interp.NewConsole(nil, &out))
	main, err := rt.Program("MAIN")
	require.NoError(t, err)
	_, err = s.NewMachine().Run(context.Background(), main, symtab.NewTable("MAIN", s.Global))
	require.NoError(t, err)
	// 1 + 2 + 6 + 24 + 120
	assert.Equal(t, "153\n", out.String())

	tries, err := s.Global.Value(interp.ConnImageTries)
	require.NoError(t, err)
	assert.Greater(t, int64(tries.(vm.IntValue)), int64(1))
}

func TestSessionsShareCatalog(t *testing.T) {
	progs, err := compile.File("main", strings.NewReader(factSource))
	require.NoError(t, err)
	rt := interp.NewRuntime(nil)
	for _, p := range progs {
		require.NoError(t, rt.Register(p))
	}

	const sessions = 8
	results := make([]vm.Value, sessions)
	errs := make([]error, sessions)
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := rt.NewSession(nil)
			results[i], errs[i] = s.NewMachine().Call(context.Background(), "FACT", vm.IntValue(int64(i+1)))
		}()
	}
	wg.Wait()

	want := int64(1)
	for i := range sessions {
		require.NoError(t, errs[i])
		want *= int64(i + 1)
		assert.Equal(t, vm.IntValue(want), results[i], "fact(%d)", i+1)
	}
	hits, err := rt.NewSession(nil).Global.Value(interp.ConnFCacheHits)
	require.NoError(t, err)
	assert.Greater(t, int64(hits.(vm.IntValue)), int64(0))
}

func TestCatalogOverSharedStore(t *testing.T) {
	store := cas.NewMemoryCAS()
	a := cas.NewCatalog(store)
	b := cas.NewCatalog(store)

	progs, err := compile.File("main", strings.NewReader(factSource))
	require.NoError(t, err)
	ha, err := a.Register(progs[1])
	require.NoError(t, err)
	hb, err := b.Register(progs[1])
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "identical programs share one image")

	fa, err := a.Load("fact")
	require.NoError(t, err)
	fb, err := b.Load("FACT")
	require.NoError(t, err)
	assert.NotSame(t, fa, fb)
	assert.Equal(t, fa.Len(), fb.Len())
}
