package services

import (
	"context"
	"errors"
	"fmt"
	"forumcore/internal/cache"
	"forumcore/internal/models"
	"forumcore/internal/utils"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	minSearchLength = 3
)

// PostView 返回给客户端的帖子，UserVote 是当前访问者的投票（未登录或未投票为 nil）
type PostView struct {
	models.Post
	UserVote *int `json:"user_vote"`
}

// PostDetail 详情页，额外带渲染后的正文
type PostDetail struct {
	PostView
	ContentHTML string `json:"content_html"`
}

// CommentView 同 PostView
type CommentView struct {
	models.Comment
	UserVote *int `json:"user_vote"`
}

type FeedQuery struct {
	Sort     utils.SortMode
	TopicID  uint
	Offset   int
	Limit    int
	ViewerID uint
}

// FeedPage 一页帖子。Total 是本页条数，HasMore 表示后面还有
type FeedPage struct {
	Items   []PostView `json:"items"`
	Total   int        `json:"total"`
	HasMore bool       `json:"has_more"`
}

type CommentQuery struct {
	Sort     string // new, old, best
	Offset   int
	Limit    int
	ViewerID uint
}

type CommentPage struct {
	Items   []CommentView `json:"items"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

type SearchQuery struct {
	Q        string
	Offset   int
	Limit    int
	ViewerID uint
}

// cachedPage 与访问者无关的部分，可以在用户之间共享
type cachedPage struct {
	posts   []models.Post
	hasMore bool
}

// FeedService 组装列表、详情、评论和搜索结果。
//
// 返回的都是视图类型，不会修改实体。共享缓存只缓存一页的帖子和顺序，
// 命中时计数和访问者的投票状态都重新查询。
type FeedService struct {
	db      *gorm.DB
	votes   *VoteService
	pages   *cache.LRU // 可为 nil
	pageTTL time.Duration
	log     zerolog.Logger

	Now func() time.Time
}

func NewFeedService(db *gorm.DB, votes *VoteService, pages *cache.LRU, pageTTL time.Duration, logger zerolog.Logger) *FeedService {
	return &FeedService{
		db:      db,
		votes:   votes,
		pages:   pages,
		pageTTL: pageTTL,
		log:     logger,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Invalidate 清空共享的列表缓存，发帖和删帖后调用
func (s *FeedService) Invalidate() {
	if s.pages != nil {
		s.pages.Purge()
	}
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}

// Feed 帖子列表。多取一条判断 has_more。
func (s *FeedService) Feed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if q.Sort == "" {
		q.Sort = utils.SortHot
	}
	if _, ok := utils.ParseSort(string(q.Sort)); !ok {
		return nil, invalid("unknown sort %q", q.Sort)
	}
	q.Offset, q.Limit = normalizePage(q.Offset, q.Limit)

	key := fmt.Sprintf("feed:%s:%d:%d:%d", q.Sort, q.TopicID, q.Offset, q.Limit)
	var page cachedPage
	if cached, ok := s.cachedPage(key); ok {
		// 缓存里的计数可能已过期，按 id 一次取回最新值
		posts, err := s.freshCounts(ctx, cached.posts)
		if err != nil {
			return nil, err
		}
		page = cachedPage{posts: posts, hasMore: cached.hasMore}
	} else {
		posts, err := s.loadFeed(ctx, q)
		if err != nil {
			return nil, err
		}
		page = cachedPage{posts: posts}
		if len(page.posts) > q.Limit {
			page.posts = page.posts[:q.Limit]
			page.hasMore = true
		}
		if s.pages != nil && s.pageTTL > 0 {
			s.pages.Set(key, page, s.pageTTL)
		}
	}

	items, err := s.postViews(ctx, page.posts, q.ViewerID)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Items: items, Total: len(items), HasMore: page.hasMore}, nil
}

func (s *FeedService) cachedPage(key string) (cachedPage, bool) {
	if s.pages == nil {
		return cachedPage{}, false
	}
	page, ok := s.pages.Get(key).(cachedPage)
	return page, ok
}

// freshCounts 返回带最新计数的副本，不修改缓存中的切片
func (s *FeedService) freshCounts(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	if len(posts) == 0 {
		return posts, nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	type counts struct {
		ID           uint
		VoteCount    int
		ViewCount    int
		CommentCount int
	}
	var rows []counts
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("id, vote_count, view_count, comment_count").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, storeErr("refresh post counts", err)
	}
	byID := make(map[uint]counts, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	out := make([]models.Post, len(posts))
	for i, p := range posts {
		if c, ok := byID[p.ID]; ok {
			p.VoteCount, p.ViewCount, p.CommentCount = c.VoteCount, c.ViewCount, c.CommentCount
		}
		out[i] = p
	}
	return out, nil
}

func (s *FeedService) livePosts(ctx context.Context, topicID uint) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Post{}).Where("posts.is_deleted = ?", false)
	if topicID != 0 {
		tx = tx.Where("posts.id IN (?)", s.db.Table("post_topics").Select("post_id").Where("topic_id = ?", topicID))
	}
	return tx
}

// loadFeed 返回最多 limit+1 条
func (s *FeedService) loadFeed(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	var posts []models.Post
	switch q.Sort {
	case utils.SortNew:
		err := s.livePosts(ctx, q.TopicID).
			Preload("User").Preload("Topics").
			Order("posts.created_at DESC").Order("posts.id DESC").
			Offset(q.Offset).Limit(q.Limit + 1).
			Find(&posts).Error
		if err != nil {
			return nil, storeErr("load new feed", err)
		}
		return posts, nil
	case utils.SortTop:
		err := s.livePosts(ctx, q.TopicID).
			Preload("User").Preload("Topics").
			Order("posts.vote_count DESC").Order("posts.created_at DESC").Order("posts.id DESC").
			Offset(q.Offset).Limit(q.Limit + 1).
			Find(&posts).Error
		if err != nil {
			return nil, storeErr("load top feed", err)
		}
		return posts, nil
	}

	// hot：热度依赖当前时间，数据库里没有现成的列可排序。
	// 先取过滤后的 (id, vote_count, created_at) 在内存里排，再按 id 取这一页。
	// 帖子量很大时应改为定期落库的热度列。
	var rows []utils.RankItem
	if err := s.livePosts(ctx, q.TopicID).
		Select("posts.id, posts.vote_count, posts.created_at").
		Scan(&rows).Error; err != nil {
		return nil, storeErr("load hot candidates", err)
	}
	ordered := utils.Order(rows, utils.SortHot, s.Now())
	if q.Offset >= len(ordered) {
		return nil, nil
	}
	end := q.Offset + q.Limit + 1
	if end > len(ordered) {
		end = len(ordered)
	}
	ordered = ordered[q.Offset:end]

	ids := make([]uint, len(ordered))
	for i, it := range ordered {
		ids[i] = it.ID
	}
	if err := s.db.WithContext(ctx).Preload("User").Preload("Topics").
		Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, storeErr("load hot feed", err)
	}

	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// postViews 一次批量查询附加访问者投票
func (s *FeedService) postViews(ctx context.Context, posts []models.Post, viewerID uint) ([]PostView, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	votes, err := s.votes.UserVotes(ctx, TargetPost, viewerID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]PostView, len(posts))
	for i, p := range posts {
		items[i] = PostView{Post: p, UserVote: voteRef(votes, p.ID)}
	}
	return items, nil
}

func voteRef(votes map[uint]int, id uint) *int {
	v, ok := votes[id]
	if !ok {
		return nil
	}
	return &v
}

// Detail 帖子详情。非作者访问时浏览数 +1
func (s *FeedService) Detail(ctx context.Context, postID, viewerID uint) (*PostDetail, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("User").Preload("Topics").
		Where("id = ? AND is_deleted = ?", postID, false).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("post", postID)
	}
	if err != nil {
		return nil, storeErr("load post", err)
	}

	if viewerID != post.UserID {
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
			// 浏览数不重要，失败不影响返回
			s.log.Warn().Err(err).Uint("post", post.ID).Msg("increment view count failed")
		} else {
			post.ViewCount++
		}
	}

	views, err := s.postViews(ctx, []models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		PostView:    views[0],
		ContentHTML: utils.RenderMarkdown(post.Content),
	}, nil
}

// Comments 帖子下的评论，平铺返回，由客户端按 parent_id 组装
func (s *FeedService) Comments(ctx context.Context, postID uint, q CommentQuery) (*CommentPage, error) {
	if err := targetExists(s.db.WithContext(ctx), targets[TargetPost], postID); err != nil {
		return nil, err
	}
	q.Offset, q.Limit = normalizePage(q.Offset, q.Limit)

	tx := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ? AND is_deleted = ?", postID, false)
	switch q.Sort {
	case "", "new":
		tx = tx.Order("created_at DESC").Order("id DESC")
	case "old":
		tx = tx.Order("created_at ASC").Order("id ASC")
	case "best":
		tx = tx.Order("vote_count DESC").Order("created_at DESC").Order("id DESC")
	default:
		return nil, invalid("unknown comment sort %q", q.Sort)
	}

	var comments []models.Comment
	if err := tx.Offset(q.Offset).Limit(q.Limit + 1).Find(&comments).Error; err != nil {
		return nil, storeErr("load comments", err)
	}
	hasMore := len(comments) > q.Limit
	if hasMore {
		comments = comments[:q.Limit]
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	votes, err := s.votes.UserVotes(ctx, TargetComment, q.ViewerID, ids)
	if err != nil {
		return nil, err
	}
	items := make([]CommentView, len(comments))
	for i, c := range comments {
		items[i] = CommentView{Comment: c, UserVote: voteRef(votes, c.ID)}
	}
	return &CommentPage{Items: items, Total: len(items), HasMore: hasMore}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search 标题和正文子串匹配。标题命中的排在前面，其次按票数、时间
func (s *FeedService) Search(ctx context.Context, q SearchQuery) (*FeedPage, error) {
	term := strings.TrimSpace(q.Q)
	if utf8.RuneCountInString(term) < minSearchLength {
		return nil, invalid("search query must be at least %d characters", minSearchLength)
	}
	q.Offset, q.Limit = normalizePage(q.Offset, q.Limit)
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"

	var posts []models.Post
	err := s.livePosts(ctx, 0).
		Preload("User").Preload("Topics").
		Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                `CASE WHEN LOWER(posts.title) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, posts.vote_count DESC, posts.created_at DESC, posts.id DESC`,
			Vars:               []interface{}{pattern},
			WithoutParentheses: true,
		}}).
		Offset(q.Offset).Limit(q.Limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, storeErr("search posts", err)
	}

	hasMore := len(posts) > q.Limit
	if hasMore {
		posts = posts[:q.Limit]
	}
	items, err := s.postViews(ctx, posts, q.ViewerID)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Items: items, Total: len(items), HasMore: hasMore}, nil
}
