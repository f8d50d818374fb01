package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// JiraClient implements Client against the Jira REST API.
type JiraClient struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

// NewJiraClient creates a Jira client for the given site.
func NewJiraClient(baseURL, email, token string) *JiraClient {
	return &JiraClient{
		baseURL: baseURL,
		email:   email,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueLinks []struct {
			OutwardIssue *struct {
				Key string `json:"key"`
			} `json:"outwardIssue"`
			InwardIssue *struct {
				Key string `json:"key"`
			} `json:"inwardIssue"`
		} `json:"issuelinks"`
	} `json:"fields"`
}

func (j jiraIssue) toTicket() Ticket {
	t := Ticket{
		Key:     j.Key,
		Summary: j.Fields.Summary,
		Status:  j.Fields.Status.Name,
	}
	for _, link := range j.Fields.IssueLinks {
		if link.OutwardIssue != nil {
			t.Links = append(t.Links, link.OutwardIssue.Key)
		}
		if link.InwardIssue != nil {
			t.Links = append(t.Links, link.InwardIssue.Key)
		}
	}
	return t
}

func (c *JiraClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tracker responded %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tracker response: %w", err)
	}
	return nil
}

func (c *JiraClient) GetTicket(ctx context.Context, key string) (*Ticket, error) {
	var issue jiraIssue
	path := fmt.Sprintf("/rest/api/2/issue/%s?fields=summary,status,issuelinks", key)
	if err := c.get(ctx, path, &issue); err != nil {
		return nil, err
	}
	t := issue.toTicket()
	return &t, nil
}

func (c *JiraClient) Search(ctx context.Context, query string) ([]Ticket, error) {
	var result struct {
		Issues []jiraIssue `json:"issues"`
	}
	path := "/rest/api/2/search?fields=summary,status,issuelinks&jql=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	tickets := make([]Ticket, 0, len(result.Issues))
	for _, issue := range result.Issues {
		tickets = append(tickets, issue.toTicket())
	}
	return tickets, nil
}
