//go:build e2e && unix

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func catsDocument(t *testing.T, tf *TUITestFramework) string {
	t.Helper()
	_, err := tf.CreateTestWorkspace()
	require.NoError(t, err, "Failed to create test workspace")

	doc, err := tf.CreateTestDocument("cats.pdf",
		[]string{"The Cat sat", "on the mat"},
		[]string{"nothing here"},
		[]string{"another cat", "and a third cat"},
	)
	require.NoError(t, err, "Failed to create test document")
	return doc
}

func TestSearchReportsMatches(t *testing.T) {
	t.Parallel()
	tf := NewTUITest(t)
	defer tf.Cleanup()

	require.NoError(t, tf.StartWithDocument(catsDocument(t, tf)))
	require.True(t, tf.Ready(), "Should render the title bar")
	require.True(t, tf.SeePlain("The Cat sat"), "Should render document text")

	tf.Type("cat")

	if err := tf.WaitForE(func(s string) bool {
		return strings.Contains(ansiRe.ReplaceAllString(s, ""), `3 matches for "cat"`)
	}, 5*time.Second, "search should finish with three matches"); err != nil {
		tf.DumpTailOnFail(t, "search-failure", 8192)
		t.Fatal(err)
	}
	require.True(t, tf.SeePlain("page 3/3"), "Last match should leave the view on page 3")
}

func TestSearchInitialQueryAndStepping(t *testing.T) {
	t.Parallel()
	tf := NewTUITest(t)
	defer tf.Cleanup()

	require.NoError(t, tf.StartWithDocument(catsDocument(t, tf), "-q", "mat"))
	require.True(t, tf.Ready(), "Should render the title bar")
	require.True(t, tf.WaitForStatusMessage(`1 match for "mat"`, 5*time.Second), "Initial query should run after load")

	tf.ToggleFocus()
	tf.Next()
	require.True(t, tf.SeePlain("Match 1/1"), "Stepping should report the selected match")
	tf.Prev()
	require.True(t, tf.WaitForStatusMessage("Match 1/1", time.Second), "Stepping back wraps to the only match")

	tf.Quit()
}

func TestSearchWithoutMatches(t *testing.T) {
	t.Parallel()
	tf := NewTUITest(t)
	defer tf.Cleanup()

	require.NoError(t, tf.StartWithDocument(catsDocument(t, tf), "-placement", "match"))
	require.True(t, tf.Ready(), "Should render the title bar")
	require.True(t, tf.SeePlain("The Cat sat"), "Should render document text")

	tf.Type("zebra")

	require.True(t, tf.WaitForStatusMessage(`No matches for "zebra"`, 5*time.Second), "Should report an empty search")
	tf.SendCtrlC()
}

func TestTextPagerRoundTrip(t *testing.T) {
	t.Parallel()
	tf := NewTUITest(t)
	defer tf.Cleanup()

	require.NoError(t, tf.StartWithDocument(catsDocument(t, tf)))
	require.True(t, tf.Ready(), "Should render the title bar")
	require.True(t, tf.SeePlain("The Cat sat"), "Should render document text")

	initial := tf.Snapshot()
	tf.OpenTextPager()
	require.True(t, tf.WaitFor(func(s string) bool { return s != initial }, 2*time.Second), "Pager should change the screen")
	require.True(t, tf.SeePlain("and a third cat"), "Pager should show the document text")

	after := tf.Snapshot()
	tf.Quit()
	require.True(t, tf.WaitFor(func(s string) bool { return len(s) > len(after) }, 2*time.Second), "Should return to the main view")
	require.True(t, tf.SeePlain("pdfseek "), "Title bar should be redrawn after the pager")
}
