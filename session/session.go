package session

import (
	"errors"
	"fmt"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyWorkspace  = fmt.Errorf("%w: workspace id is empty", model.ErrValidation)
	ErrEmptyUser       = fmt.Errorf("%w: user id is empty", model.ErrValidation)
	ErrEmptyLanguage   = fmt.Errorf("%w: language is empty", model.ErrValidation)
)

type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Java       Language = "java"
	Cpp        Language = "cpp"
	Go         Language = "go"
	Rust       Language = "rust"
	HTML       Language = "html"
	CSS        Language = "css"
)

var templates = map[Language]string{
	JavaScript: "// Write your JavaScript code here\nconsole.log(\"Hello, World!\");",
	TypeScript: "// Write your TypeScript code here\nconst greeting: string = \"Hello, World!\";\nconsole.log(greeting);",
	Python:     "# Write your Python code here\nprint(\"Hello, World!\")",
	Java:       "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World!\");\n    }\n}",
	Cpp:        "#include <iostream>\n\nint main() {\n    std::cout << \"Hello, World!\" << std::endl;\n    return 0;\n}",
	Go:         "package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, World!\")\n}",
	Rust:       "fn main() {\n    println!(\"Hello, World!\");\n}",
	HTML:       "<!DOCTYPE html>\n<html>\n<head>\n    <title>Document</title>\n</head>\n<body>\n    <h1>Hello, World!</h1>\n</body>\n</html>",
	CSS:        "/* Write your CSS here */\nbody {\n    font-family: Arial, sans-serif;\n    margin: 0;\n    padding: 20px;\n}",
}

func (lang Language) Template() string {
	if code, ok := templates[lang]; ok {
		return code
	}

	return "// Start coding..."
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Range struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

type Session struct {
	ID              string              `json:"id"`
	WorkspaceID     string              `json:"workspaceId"`
	UserID          string              `json:"userId"` // immutable
	UserName        string              `json:"userName"`
	Language        Language            `json:"language"`
	Title           string              `json:"title"`
	Code            string              `json:"code"`
	CursorPositions map[string]Position `json:"cursorPositions,omitempty"`
	Selections      map[string]Range    `json:"selections,omitempty"`
	Revision        document.Revision   `json:"revision"`
	model.Model
}

func NewSession(workspaceID string, userID string, userName string, lang Language, title string) (*Session, error) {
	if workspaceID == "" {
		return nil, ErrEmptyWorkspace
	}

	if userID == "" {
		return nil, ErrEmptyUser
	}

	if lang == "" {
		return nil, ErrEmptyLanguage
	}

	if title == "" {
		title = string(lang) + " Session"
	}

	return &Session{
		WorkspaceID: workspaceID,
		UserID:      userID,
		UserName:    userName,
		Language:    lang,
		Title:       title,
		Code:        lang.Template(),
	}, nil
}

// Fork copies the language and code of s into a new session owned by userID.
func (s *Session) Fork(userID string, userName string) (*Session, error) {
	fork, err := NewSession(s.WorkspaceID, userID, userName, s.Language,
		fmt.Sprintf("%s (Forked from %s)", s.Title, userName))
	if err != nil {
		return nil, err
	}

	fork.Code = s.Code
	return fork, nil
}

func (s *Session) IsOwner(userID string) bool {
	return s.UserID == userID
}

// Latest returns the most recently created session of userID, or nil.
func Latest(sessions []*Session, userID string) *Session {
	var latest *Session
	for _, s := range sessions {
		if s.UserID != userID {
			continue
		}

		if latest == nil || s.ID > latest.ID {
			latest = s
		}
	}

	return latest
}
