package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// GitHubClient implements Client using the gh CLI, which handles auth
// and API versioning for us.
type GitHubClient struct{}

// NewGitHubClient returns a new GitHubClient.
func NewGitHubClient() *GitHubClient {
	return &GitHubClient{}
}

func ghCmd(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *GitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	out, err := ghCmd(ctx, "pr", "view", fmt.Sprintf("%d", number),
		"--repo", fmt.Sprintf("%s/%s", owner, repo),
		"--json", "number,title,state,headRefName,headRefOid,baseRefName,mergeStateStatus,url",
	)
	if err != nil {
		return nil, err
	}

	var pr PullRequest
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return nil, fmt.Errorf("parse pull request: %w", err)
	}
	return &pr, nil
}

func (c *GitHubClient) ListCommits(ctx context.Context, owner, repo string, number int) ([]Commit, error) {
	out, err := ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/%s/pulls/%d/commits", owner, repo, number),
		"--jq", `[.[] | {oid: .sha, messageHeadline: .commit.message | split("\n")[0], authorName: .commit.author.name}]`,
	)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	if err := json.Unmarshal([]byte(out), &commits); err != nil {
		return nil, fmt.Errorf("parse commits: %w", err)
	}
	return commits, nil
}

func (c *GitHubClient) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error) {
	out, err := ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/%s/pulls/%d/files", owner, repo, number),
		"--jq", `[.[] | {path: .filename, additions: .additions, deletions: .deletions}]`,
	)
	if err != nil {
		return nil, err
	}

	var files []ChangedFile
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		return nil, fmt.Errorf("parse changed files: %w", err)
	}
	return files, nil
}

func (c *GitHubClient) SearchPullRequests(ctx context.Context, owner, repo, query string) ([]SearchResult, error) {
	out, err := ghCmd(ctx, "pr", "list",
		"--repo", fmt.Sprintf("%s/%s", owner, repo),
		"--search", query,
		"--state", "all",
		"--json", "number,title,state,url",
	)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	return results, nil
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

func (c *GitHubClient) FileContent(ctx context.Context, owner, repo, branch, path string) (string, string, error) {
	out, err := ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/%s/contents/%s?ref=%s", owner, repo, path, branch),
	)
	if err != nil {
		return "", "", err
	}

	var resp contentResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return "", "", fmt.Errorf("parse file content: %w", err)
	}

	if resp.Encoding != "base64" {
		return resp.Content, resp.SHA, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return "", "", fmt.Errorf("decode file content: %w", err)
	}
	return string(decoded), resp.SHA, nil
}

func (c *GitHubClient) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	return ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/%s/git/ref/heads/%s", owner, repo, branch),
		"--jq", ".object.sha",
	)
}

func (c *GitHubClient) CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error {
	_, err := ghCmd(ctx, "api", "--method", "POST",
		fmt.Sprintf("repos/%s/%s/git/refs", owner, repo),
		"-f", fmt.Sprintf("ref=refs/heads/%s", name),
		"-f", fmt.Sprintf("sha=%s", fromSHA),
	)
	return err
}

func (c *GitHubClient) DeleteBranch(ctx context.Context, owner, repo, name string) error {
	_, err := ghCmd(ctx, "api", "--method", "DELETE",
		fmt.Sprintf("repos/%s/%s/git/refs/heads/%s", owner, repo, name),
	)
	return err
}

func (c *GitHubClient) WriteFile(ctx context.Context, owner, repo, branch, path, content, expectedSHA, message string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	args := []string{"api", "--method", "PUT",
		fmt.Sprintf("repos/%s/%s/contents/%s", owner, repo, path),
		"-f", fmt.Sprintf("message=%s", message),
		"-f", fmt.Sprintf("content=%s", encoded),
		"-f", fmt.Sprintf("branch=%s", branch),
	}
	if expectedSHA != "" {
		args = append(args, "-f", fmt.Sprintf("sha=%s", expectedSHA))
	}
	_, err := ghCmd(ctx, args...)
	return err
}

func (c *GitHubClient) CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error) {
	out, err := ghCmd(ctx, "api", "--method", "POST",
		fmt.Sprintf("repos/%s/%s/pulls", owner, repo),
		"-f", fmt.Sprintf("title=%s", title),
		"-f", fmt.Sprintf("body=%s", body),
		"-f", fmt.Sprintf("head=%s", head),
		"-f", fmt.Sprintf("base=%s", base),
		"--jq", `{number: .number, title: .title, state: .state, headRefName: .head.ref, headRefOid: .head.sha, baseRefName: .base.ref, url: .html_url}`,
	)
	if err != nil {
		return nil, err
	}

	var pr PullRequest
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return nil, fmt.Errorf("parse created pull request: %w", err)
	}
	return &pr, nil
}

func (c *GitHubClient) Comment(ctx context.Context, owner, repo string, number int, body string) error {
	_, err := ghCmd(ctx, "api", "--method", "POST",
		fmt.Sprintf("repos/%s/%s/issues/%d/comments", owner, repo, number),
		"-f", fmt.Sprintf("body=%s", body),
	)
	return err
}

func (c *GitHubClient) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	args := []string{"api", "--method", "POST",
		fmt.Sprintf("repos/%s/%s/issues/%d/labels", owner, repo, number),
	}
	for _, l := range labels {
		args = append(args, "-f", fmt.Sprintf("labels[]=%s", l))
	}
	_, err := ghCmd(ctx, args...)
	return err
}

func (c *GitHubClient) ListCheckRuns(ctx context.Context, owner, repo, ref string) ([]CheckRun, error) {
	out, err := ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/%s/commits/%s/check-runs", owner, repo, ref),
		"--jq", `[.check_runs[] | {name: .name, status: .status, conclusion: .conclusion}]`,
	)
	if err != nil {
		return nil, err
	}

	var runs []CheckRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		return nil, fmt.Errorf("parse check runs: %w", err)
	}
	return runs, nil
}
