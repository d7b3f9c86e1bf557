package artifact

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const documentFile = "document.md"

// Verdict is the editor's judgement attached to a revision.
type Verdict string

const (
	VerdictRevise   Verdict = "revise"
	VerdictApproved Verdict = "approved"
)

// Revision is one materialized change in the document's version history.
type Revision struct {
	Number  int
	Commit  string
	Verdict Verdict
	Subject string
}

var revisionSubjectRe = regexp.MustCompile(`^Revision (\d+) \(verdict: (\w+)\)$`)

// runGit executes one git command in dir, folding stderr into the error.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("artifact: git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Document owns the workshop document and its git-backed revision history.
// Each materialized revision is exactly one commit carrying its editorial
// verdict; content-preserving cycles create no commit.
type Document struct {
	dir       string
	path      string
	revisions int

	// committed is the content of the last revision commit. Change
	// detection compares against this, not the file, because the file may
	// hold an uncommitted draft.
	committed string
}

// NewDocument initializes the document store in dir, seeding from
// sourceFile when given, and makes the initial commit.
func NewDocument(dir, topic, sourceFile string) (*Document, error) {
	d := &Document{dir: dir, path: filepath.Join(dir, documentFile)}

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if _, err := runGit(dir, "init"); err != nil {
			return nil, err
		}
		// Local identity so commits work without global git config.
		if _, err := runGit(dir, "config", "user.name", "Discourse Workshop"); err != nil {
			return nil, err
		}
		if _, err := runGit(dir, "config", "user.email", "workshop@discourse.local"); err != nil {
			return nil, err
		}
	}

	var seed []byte
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return nil, fmt.Errorf("artifact: reading source file: %w", err)
		}
		seed = data
	} else {
		seed = []byte(fmt.Sprintf("# %s\n", topic))
	}
	if err := os.WriteFile(d.path, seed, 0o644); err != nil {
		return nil, fmt.Errorf("artifact: writing %s: %w", d.path, err)
	}
	if err := d.commit("Initialize document"); err != nil {
		return nil, err
	}
	d.committed = string(seed)
	return d, nil
}

// SaveDraft writes the latest author text to disk without committing it, so
// a completed turn is never only in memory. FinalCommit stages everything,
// so an in-flight draft still lands in the terminal commit.
func (d *Document) SaveDraft(content string) error {
	if err := os.WriteFile(d.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("artifact: writing %s: %w", d.path, err)
	}
	return nil
}

// OpenDocument attaches to an existing document store without touching its
// history. Used to inspect a session after it has ended.
func OpenDocument(dir string) (*Document, error) {
	d := &Document{dir: dir, path: filepath.Join(dir, documentFile)}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("artifact: no document in %s: %w", dir, err)
	}
	d.committed = string(data)
	history, err := d.History()
	if err != nil {
		return nil, err
	}
	d.revisions = len(history)
	return d, nil
}

// Read returns the document as it is on disk, including any draft saved
// since the last revision commit.
func (d *Document) Read() (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("artifact: reading %s: %w", d.path, err)
	}
	return string(data), nil
}

// Revisions returns how many revisions have been materialized so far.
func (d *Document) Revisions() int { return d.revisions }

// CommitRevision materializes one revision with its verdict. Returns false
// without touching history when the content is unchanged.
func (d *Document) CommitRevision(content string, verdict Verdict) (bool, error) {
	if content == d.committed {
		return false, nil
	}
	if err := os.WriteFile(d.path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("artifact: writing %s: %w", d.path, err)
	}
	d.revisions++
	if err := d.commit(fmt.Sprintf("Revision %d (verdict: %s)", d.revisions, verdict)); err != nil {
		return false, err
	}
	d.committed = content
	return true, nil
}

// FinalCommit closes the version history with a terminal status commit,
// picking up any editorial log changes still unstaged.
func (d *Document) FinalCommit(status Status) error {
	return d.commit(fmt.Sprintf("Finalize session (status: %s)", status))
}

// History returns the materialized revisions in chronological order.
func (d *Document) History() ([]Revision, error) {
	out, err := runGit(d.dir, "log", "--reverse", "--pretty=format:%H%x09%s")
	if err != nil {
		return nil, err
	}
	var revisions []Revision
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		hash, subject, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		m := revisionSubjectRe.FindStringSubmatch(subject)
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		revisions = append(revisions, Revision{
			Number:  n,
			Commit:  hash,
			Verdict: Verdict(m[2]),
			Subject: subject,
		})
	}
	return revisions, nil
}

// Path returns the document location.
func (d *Document) Path() string { return d.path }

func (d *Document) commit(message string) error {
	if _, err := runGit(d.dir, "add", "-A"); err != nil {
		return err
	}
	if _, err := runGit(d.dir, "commit", "-m", message, "--allow-empty"); err != nil {
		return err
	}
	return nil
}
