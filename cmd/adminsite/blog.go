package main

import (
	"context"

	"github.com/leeforge/adminsite/model"
	"github.com/leeforge/adminsite/site"
	"github.com/leeforge/adminsite/view"
)

// Demo content served by the binary.
var (
	postModel = &model.Model{
		AppLabel:    "blog",
		Name:        "post",
		VerboseName: "article",
		Manager: model.NewMemoryManager("post",
			model.Record{"title": "Hello", "status": "published", "user": "1"},
			model.Record{"title": "Drafting plugins", "status": "draft", "user": "2"},
		),
	}
	commentModel = model.New("blog", "comment", model.NewMemoryManager("comment",
		model.Record{"post": "1", "body": "First!", "user": "2"},
	))
)

var postAdmin = view.NewConfig("PostAdmin",
	view.SetAttrs(map[string]any{
		"list_display":    []string{"id", "title", "status"},
		"list_filter":     []string{"status"},
		"ordering":        []string{"-id"},
		"fields":          []string{"title", "status", "user"},
		"required_fields": []string{"title"},
		"menu_icon":       "file-text",
	}),
	view.PluginSettings("Refresh", map[string]any{"refresh_times": []int{10, 60}}),
)

var commentAdmin = view.NewConfig("CommentAdmin",
	view.SetAttrs(map[string]any{
		"list_display": []string{"id", "post", "body"},
		"fields":       []string{"post", "body", "user"},
		"menu_icon":    "comment",
	}),
	view.PluginSettings("ModelPermission", map[string]any{"user_can_access_owned_objects_only": true}),
)

func registerBlog(_ context.Context, s *site.Site) error {
	if err := s.Register(postModel, postAdmin, nil); err != nil {
		return err
	}
	return s.Register(commentModel, commentAdmin, nil)
}
