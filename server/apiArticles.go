package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rpublish/rpublish/pkg/www"
	"github.com/rpublish/rpublish/server/articles"
	"github.com/rpublish/rpublish/server/identity"
)

// checkArticle maps a lifecycle error onto the HTTP response: an unknown id is
// a 404, anything else bubbles up as a 500 via the panic handler.
func checkArticle(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, articles.ErrArticleNotFound) {
		www.PanicNotFound()
	}
	www.Check(err)
}

func articleID(params httprouter.Params) string {
	id := strings.TrimSpace(params.ByName("id"))
	if id == "" {
		www.PanicBadRequestf("Invalid article id")
	}
	return id
}

// articleJSON is the wire shape of a full article read.
type articleJSON struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Author              string     `json:"author"`
	Data                string     `json:"data"`
	Tags                []string   `json:"tags"`
	CreatedDate         time.Time  `json:"created_date"`
	UpdateDate          time.Time  `json:"update_date"`
	Status              string     `json:"status"`
	IsPublished         bool       `json:"is_published"`
	PublishedUpdateDate *time.Time `json:"published_update_date,omitempty"`
}

// listJSON is one page of metadata, plus the total size of the list so the
// client can paginate.
type listJSON struct {
	Articles map[string]articles.Metadata `json:"articles"`
	Total    int                          `json:"total"`
}

func articleToJSON(id string, latest *articles.Latest) articleJSON {
	a := latest.Article
	return articleJSON{
		ID:                  id,
		Title:               a.Title,
		Author:              a.Author,
		Data:                a.Data,
		Tags:                a.Tags,
		CreatedDate:         a.CreatedDate,
		UpdateDate:          a.UpdateDate,
		Status:              string(latest.Status),
		IsPublished:         latest.IsPublished,
		PublishedUpdateDate: latest.PublishedUpdateDate,
	}
}

func (s *Server) httpArticleCreate(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	www.Check(s.Articles.Create(id, user.Username))
	type response struct {
		ID string `json:"id"`
	}
	www.SendJSON(w, response{ID: id})
}

func (s *Server) httpArticleGet(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	id := articleID(params)
	latest, err := s.Articles.ReadLatest(id)
	checkArticle(err)
	www.SendJSON(w, articleToJSON(id, latest))
}

func (s *Server) httpArticleUpdate(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	id := articleID(params)
	type request struct {
		Title string `json:"title"`
		Data  string `json:"data"`
	}
	req := request{}
	www.ReadJSON(w, r, &req, 16*1024*1024)
	checkArticle(s.Articles.Update(id, req.Title, req.Data))
	www.SendOK(w)
}

func (s *Server) httpArticlePublish(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	checkArticle(s.Articles.Publish(articleID(params)))
	www.SendOK(w)
}

func (s *Server) httpArticleUnpublish(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	checkArticle(s.Articles.Unpublish(articleID(params)))
	www.SendOK(w)
}

func (s *Server) httpArticleDiscard(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	checkArticle(s.Articles.DiscardChanges(articleID(params)))
	www.SendOK(w)
}

func (s *Server) httpArticleDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionEditor) {
		www.PanicForbidden()
	}
	checkArticle(s.Articles.Delete(articleID(params)))
	www.SendOK(w)
}

// listParams reads status/start/count query values. count defaults to 10.
func listParams(r *http.Request) (articles.Status, int, int) {
	status := articles.Status(www.QueryValue(r, "status"))
	if status == "" {
		status = articles.StatusDraft
	}
	if status != articles.StatusDraft && status != articles.StatusPublished {
		www.PanicBadRequestf("Invalid status '%v'", status)
	}
	start := www.QueryInt(r, "start")
	count := www.QueryInt(r, "count")
	if count == 0 {
		count = 10
	}
	return status, start, count
}

func (s *Server) httpArticleList(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	status, start, count := listParams(r)
	page, total := s.Articles.List(status, start, count)
	www.SendJSON(w, listJSON{Articles: page, Total: total})
}

// Public surface: readers only ever see published content, and only the
// published copy of it, regardless of any draft fork.

func (s *Server) httpPublicArticleList(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	start := www.QueryInt(r, "start")
	count := www.QueryInt(r, "count")
	if count == 0 {
		count = 10
	}
	page, total := s.Articles.List(articles.StatusPublished, start, count)
	www.SendJSON(w, listJSON{Articles: page, Total: total})
}

func (s *Server) httpPublicArticleGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := articleID(params)
	a, err := s.Articles.ReadFrom(id, articles.StatusPublished)
	checkArticle(err)
	date := a.UpdateDate
	www.SendJSON(w, articleJSON{
		ID:                  id,
		Title:               a.Title,
		Author:              a.Author,
		Data:                a.Data,
		Tags:                a.Tags,
		CreatedDate:         a.CreatedDate,
		UpdateDate:          a.UpdateDate,
		Status:              string(articles.StatusPublished),
		IsPublished:         true,
		PublishedUpdateDate: &date,
	})
}
