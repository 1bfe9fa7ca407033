package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type policyTestSuite struct {
	suite.Suite
	policy Policy
}

func (suite *policyTestSuite) SetupSuite() {
	p, err := NewRegoPolicy(context.TODO())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.policy = p
}

func (suite *policyTestSuite) eval(input Input) bool {
	allowed, err := suite.policy.Eval(context.TODO(), input)
	if err != nil {
		suite.Fail(err.Error())
		return false
	}

	return allowed
}

func (suite *policyTestSuite) team() Resource {
	return Resource{
		Owner:           "u1",
		Members:         []string{"u1", "u2"},
		TextChatEnabled: true,
	}
}

func (suite *policyTestSuite) TestWorkspaceOwnerOnly() {
	suite.True(suite.eval(Input{UpdateSettings, "u1", suite.team()}))
	suite.False(suite.eval(Input{UpdateSettings, "u2", suite.team()}))
	suite.False(suite.eval(Input{UpdateSettings, "u3", suite.team()}))

	suite.True(suite.eval(Input{DeleteWorkspace, "u1", suite.team()}))
	suite.False(suite.eval(Input{DeleteWorkspace, "u2", suite.team()}))
}

func (suite *policyTestSuite) TestLeave() {
	suite.False(suite.eval(Input{LeaveWorkspace, "u1", suite.team()}))
	suite.True(suite.eval(Input{LeaveWorkspace, "u2", suite.team()}))
}

func (suite *policyTestSuite) TestJoinAndCreate() {
	suite.True(suite.eval(Input{JoinWorkspace, "u3", suite.team()}))
	suite.True(suite.eval(Input{CreateWorkspace, "u3", Resource{}}))
	suite.False(suite.eval(Input{CreateWorkspace, "", Resource{}}))
}

func (suite *policyTestSuite) TestSessionAuthor() {
	res := suite.team()
	res.Author = "u2"

	suite.True(suite.eval(Input{UpdateCode, "u2", res}))
	suite.False(suite.eval(Input{UpdateCode, "u1", res}))

	suite.True(suite.eval(Input{UpdateCursor, "u2", res}))
	suite.False(suite.eval(Input{UpdateCursor, "u1", res}))
	suite.False(suite.eval(Input{UpdateCursor, "u3", res}))

	suite.True(suite.eval(Input{DeleteSession, "u2", res}))
	suite.True(suite.eval(Input{DeleteSession, "u1", res}))
	suite.False(suite.eval(Input{DeleteSession, "u3", res}))

	suite.True(suite.eval(Input{ReadSession, "u1", res}))
	suite.False(suite.eval(Input{ReadSession, "u3", res}))
}

func (suite *policyTestSuite) TestChat() {
	res := suite.team()
	suite.True(suite.eval(Input{SendMessage, "u2", res}))
	suite.False(suite.eval(Input{SendMessage, "u3", res}))

	res.TextChatEnabled = false
	suite.False(suite.eval(Input{SendMessage, "u2", res}))
}

func (suite *policyTestSuite) TestMergeResolve() {
	res := suite.team()
	res.Recipient = "u1"

	suite.True(suite.eval(Input{ResolveMerge, "u1", res}))
	suite.False(suite.eval(Input{ResolveMerge, "u2", res}))
}

func (suite *policyTestSuite) TestUnknownAction() {
	suite.False(suite.eval(Input{Action("workspace.explode"), "u1", suite.team()}))
}

func TestPolicyTestSuite(t *testing.T) {
	suite.Run(t, new(policyTestSuite))
}
