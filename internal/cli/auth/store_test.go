package auth

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setTempCfg перенастраивает пользовательский конфиг-каталог в temp для изоляции тестов.
func setTempCfg(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
}

func TestFileStore_SaveLoad_TrimsWhitespace(t *testing.T) {
	setTempCfg(t)
	st := FileStore{}
	require.NoError(t, st.Save("tok-123\n"))

	// дозапишем мусор в конец файла
	p, err := tokenPath()
	require.NoError(t, err)
	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, _ = f.WriteString("  \r\n")
	_ = f.Close()

	tok, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
}

func TestFileStore_MissingOrEmpty(t *testing.T) {
	setTempCfg(t)
	st := FileStore{}

	_, err := st.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	p, err := tokenPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte(" \n"), 0o600))
	_, err = st.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	assert.Error(t, st.Save("  "))
}
