package csdl

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerReceivesResolutionEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	opts := DefaultOptions()
	opts.Logger = NewZapLogger(zap.New(core))
	opts.MetadataFactory = func(context.Context, string, string) (*Metadata, error) { return nil, nil }

	_, err := Convert(context.Background(), []byte(edmxDocument("", `
		<ComplexType Name="C"><Annotation Term="Ext.Flag"/></ComplexType>`)), opts)
	var missing *MissingReferencesError
	require.ErrorAs(t, err, &missing)

	warnings := logs.FilterMessage("referenced document not found").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "Ext", warnings[0].ContextMap()["namespace"])

	assert.NotZero(t, logs.FilterMessage("creating node").Len())
	traces := logs.FilterMessage("entering Context.ResolveType").All()
	require.NotEmpty(t, traces)
	assert.Equal(t, true, traces[0].ContextMap()["trace"])
}

func TestSlogLoggerPathLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelPath})))

	l.Path("entering step", "type", "Demo.T")
	l.Info("done")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG-4 msg=\"entering step\" type=Demo.T")
	assert.Contains(t, out, "level=INFO msg=done")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	assert.NotPanics(t, func() {
		l.Debug("a")
		l.Info("b")
		l.Warn("c")
		l.Error("d")
		l.Path("e")
	})
	assert.NotNil(t, NewZapLogger(nil))
	assert.NotNil(t, NewSlogLogger(nil))
}
