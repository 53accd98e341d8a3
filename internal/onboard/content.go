package onboard

import "fmt"

// Commit messages and paths for the files the onboarding branch carries.
const (
	DescriptorCommitMessage = "Add Backstage catalog entities"

	WorkflowPath          = ".github/workflows/publish-backstage.yml"
	WorkflowCommitMessage = "Add Backstage publish workflow"

	githubReadmePath    = ".github/README.md"
	githubReadmeMessage = "Add .github directory"
	githubReadmeContent = "GitHub configuration files"

	workflowsReadmePath    = ".github/workflows/README.md"
	workflowsReadmeMessage = "Add workflows directory"
	workflowsReadmeContent = "GitHub Actions workflow files"
)

// workflowContent publishes catalog-info.yaml changes through the shared
// reusable workflow of the organization.
const workflowContent = `name: Publish to Backstage

on:
  push:
    branches:
      - main
    paths:
      - 'catalog-info.yaml'
  workflow_dispatch:

jobs:
  publish:
    uses: ${{ github.repository_owner }}/backstage-github/.github/workflows/publish-backstage-reusable.yml@main
    with:
      repository: ${{ github.event.repository.name }}
    secrets:
      AUTOMATION_TOKEN: ${{ secrets.AUTOMATION_TOKEN }}
      BACKSTAGE_URL: ${{ secrets.BACKSTAGE_URL }}
      GITHUB_API_URL: ${{ secrets.GITHUB_API_URL }}
`

// PullRequestTitle names the onboarding pull request.
const PullRequestTitle = "Add Backstage Integration"

const pullRequestBody = `This PR adds Backstage integration:

1. Adds ` + "`catalog-info.yaml`" + ` containing:
   - Component registration
   - API entities (if OpenAPI/AsyncAPI/GraphQL specs are found)
2. Adds GitHub Actions workflow to automatically publish updates to Backstage

After merging this PR:
- The component and APIs will be automatically registered in Backstage
- API documentation will be available in Backstage (if API specs exist)
- Future updates to ` + "`catalog-info.yaml`" + ` will be automatically published
- You can manually trigger publishing using the Actions tab

Required setup:
1. Add ` + "`BACKSTAGE_URL`" + ` secret in repository settings
2. Ensure GitHub Actions has necessary permissions

Note: API entities are automatically generated from:
- OpenAPI/Swagger specifications
- AsyncAPI specifications
- GraphQL schemas`

// IssueTitle names the review issue that accompanies each onboarding PR.
const IssueTitle = "Review and Merge Backstage Integration"

const issueBodyTemplate = `Please review and merge PR #%d for Backstage integration.

This PR adds:
1. Backstage component registration file (catalog-info.yaml)
2. Automated publishing workflow

Required actions:
1. Review the changes in PR #%d
2. Add the ` + "`BACKSTAGE_URL`" + ` secret in repository settings
3. To force merge this PR (this will override branch protection):
   Add a comment with ` + "`/force-merge`" + `

Note: Force merge should only be used after proper review and secret configuration.`

func issueBody(prNumber int) string {
	return fmt.Sprintf(issueBodyTemplate, prNumber, prNumber)
}
