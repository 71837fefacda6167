package patch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// renderInputFixture builds a fully populated RenderInput with one modified
// file.
func renderInputFixture() RenderInput {
	return RenderInput{
		Author:      "Jane Dev",
		AuthorEmail: "jane@example.com",
		Date:        time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("", 2*3600)),
		Subject:     "scsi: sd: fix probe error path",
		SHA:         "0123456789abcdef0123456789abcdef01234567",
		Mainline:    model.MainlineTag{Value: "v6.8", Resolved: true},
		References:  []string{"bsc#12345"},
		Body:        "The probe error path leaked a reference.",
		Changes: []model.FileChange{
			{
				Path: "drivers/scsi/sd.c",
				Kind: model.KindModified,
				Header: []string{
					"diff --git a/drivers/scsi/sd.c b/drivers/scsi/sd.c",
					"index 1111111..2222222 100644",
					"--- a/drivers/scsi/sd.c",
					"+++ b/drivers/scsi/sd.c",
				},
				Hunks: []model.Hunk{
					{Header: "@@ -1,2 +1,2 @@", Lines: []string{" ctx", "-old", "+new"}},
				},
			},
		},
	}
}

// TestRenderFull verifies the complete layout: header block in fixed order,
// blank separator, body, "---" separator, diffstat, then hunks.
func TestRenderFull(t *testing.T) {
	got := Render(renderInputFixture())

	want := strings.Join([]string{
		"From: Jane Dev <jane@example.com>",
		"Date: Fri, 1 Mar 2024 12:30:00 +0200",
		"Subject: scsi: sd: fix probe error path",
		"Git-commit: 0123456789abcdef0123456789abcdef01234567",
		"Patch-mainline: v6.8",
		"References: bsc#12345",
		"",
		"The probe error path leaked a reference.",
		"",
		"---",
		" drivers/scsi/sd.c | 2 +-",
		" 1 file changed, 1 insertion(+), 1 deletion(-)",
		"",
		"diff --git a/drivers/scsi/sd.c b/drivers/scsi/sd.c",
		"index 1111111..2222222 100644",
		"--- a/drivers/scsi/sd.c",
		"+++ b/drivers/scsi/sd.c",
		"@@ -1,2 +1,2 @@",
		" ctx",
		"-old",
		"+new",
		"",
	}, "\n")

	assert.Equal(t, want, got)
}

// TestRenderDeterministic verifies identical inputs render byte-identical
// output.
func TestRenderDeterministic(t *testing.T) {
	in := renderInputFixture()
	assert.Equal(t, Render(in), Render(in))
}

// TestRenderPartialMarker verifies the Git-commit annotation and the
// Patch-filtered header for a filtered patch.
func TestRenderPartialMarker(t *testing.T) {
	in := renderInputFixture()
	in.Partial = true
	in.Filtered = []string{"drivers/scsi/", "!*.h"}

	got := Render(in)
	assert.Contains(t, got, "Git-commit: 0123456789abcdef0123456789abcdef01234567 (partial)\n")
	assert.Contains(t, got, "Patch-filtered: drivers/scsi/ !*.h\n")
}

// TestRenderUnresolvedMainline verifies the Patch-mainline line is present
// even when no candidate claimed the commit.
func TestRenderUnresolvedMainline(t *testing.T) {
	in := renderInputFixture()
	in.Mainline = model.MainlineTag{}

	got := Render(in)
	assert.Contains(t, got, "Patch-mainline: "+model.UnresolvedMainline+"\n")
}

// TestRenderReferences verifies references are deduplicated, sorted and
// space-joined regardless of flag order.
func TestRenderReferences(t *testing.T) {
	in := renderInputFixture()
	in.References = []string{"bsc#99999", "bsc#12345", "bsc#99999", " ", "CVE-2024-0001"}

	got := Render(in)
	assert.Contains(t, got, "References: CVE-2024-0001 bsc#12345 bsc#99999\n")
}

// TestRenderSignOff verifies the trailer tag selection.
func TestRenderSignOff(t *testing.T) {
	in := renderInputFixture()
	in.SignOff = &Identity{Name: "Max Packer", Email: "max@example.com"}

	got := Render(in)
	assert.Contains(t, got, "Acked-by: Max Packer <max@example.com>\n")

	in.SignedOffBy = true
	got = Render(in)
	assert.Contains(t, got, "Signed-off-by: Max Packer <max@example.com>\n")
	assert.NotContains(t, got, "Acked-by:")
}

// TestRenderEmptyChanges verifies an empty patch still renders a complete
// header block with the separator and nothing after it.
func TestRenderEmptyChanges(t *testing.T) {
	in := renderInputFixture()
	in.Changes = nil
	in.Body = ""

	got := Render(in)
	assert.True(t, strings.HasSuffix(got, "\n---\n"), "expected output to end at the separator, got:\n%s", got)
	assert.Contains(t, got, "Subject: scsi: sd: fix probe error path\n")
}

// TestRenderParseFileRoundTrip verifies a rendered patch parses back into
// the same headers, body and diff, which is what keeps fix idempotent.
func TestRenderParseFileRoundTrip(t *testing.T) {
	in := renderInputFixture()
	text := Render(in)

	pf := ParseFile(text)
	assert.Equal(t, in.Subject, pf.Get("Subject"))
	assert.Equal(t, in.SHA, pf.Get("Git-commit"))
	assert.Equal(t, "v6.8", pf.Get("Patch-mainline"))
	assert.Equal(t, "bsc#12345", pf.Get("References"))
	assert.Equal(t, in.Body, pf.Body)

	require.Len(t, pf.Changes, 1)
	assert.Equal(t, "drivers/scsi/sd.c", pf.Changes[0].Path)

	// Rendering the parsed form again reproduces the original text.
	again := Render(RenderInput{
		Author:      in.Author,
		AuthorEmail: in.AuthorEmail,
		Date:        in.Date,
		Subject:     pf.Get("Subject"),
		SHA:         pf.Get("Git-commit"),
		Mainline:    model.MainlineTag{Value: pf.Get("Patch-mainline"), Resolved: true},
		References:  strings.Fields(pf.Get("References")),
		Body:        pf.Body,
		Changes:     pf.Changes,
	})
	assert.Equal(t, text, again)
}
