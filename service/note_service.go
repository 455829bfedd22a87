package service

import (
	"errors"
	"strings"
	"time"

	"notes_nest/model"

	"gorm.io/gorm"
)

// 访问动作，对应不同的权限规则
const (
	ActionView          = "view"
	ActionEdit          = "edit"
	ActionDelete        = "delete"
	ActionManageAuthors = "manage_authors"
)

const contentPreviewLen = 100

type NoteService struct {
	db *gorm.DB
}

func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

// Create 创建笔记，创建者自动成为第一作者
func (s *NoteService) Create(req *model.NoteCreate, creator *model.User) (*model.Note, error) {
	title, content, err := validateNoteContent(req.Title, req.Content)
	if err != nil {
		return nil, err
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = model.NotePrivate
	}
	if privacy != model.NotePrivate && privacy != model.NotePublic {
		return nil, NewValidationError("Privacy must be 'private' or 'public'")
	}

	note := &model.Note{
		Title:           title,
		Content:         content,
		Privacy:         privacy,
		CreatedByUserID: creator.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		author := &model.NoteAuthor{
			NoteID:        note.ID,
			UserID:        creator.ID,
			AddedByUserID: creator.ID,
		}
		return tx.Create(author).Error
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetByID 查询笔记，默认排除软删除
func (s *NoteService) GetByID(noteID uint) (*model.Note, error) {
	var note model.Note
	err := s.db.Where("id = ? AND deleted_at IS NULL", noteID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Note not found")
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// CheckAccess 解析笔记并校验 actor（可为 nil，即匿名）对 action 的权限
//
// 权限矩阵：
//   - view: public 任何人；private 仅作者或管理员
//   - edit / manage_authors: 作者或管理员
//   - delete: 仅创建者或管理员
func (s *NoteService) CheckAccess(noteID uint, actor *model.User, action string) (*model.Note, error) {
	note, err := s.GetByID(noteID)
	if err != nil {
		return nil, err
	}

	allowed := false
	switch action {
	case ActionView:
		if note.Privacy == model.NotePublic {
			allowed = true
		} else if actor != nil {
			allowed = actor.Role == model.RoleAdmin || s.isAuthor(note.ID, actor.ID)
		}
	case ActionEdit, ActionManageAuthors:
		if actor != nil {
			allowed = actor.Role == model.RoleAdmin || s.isAuthor(note.ID, actor.ID)
		}
	case ActionDelete:
		if actor != nil {
			allowed = actor.Role == model.RoleAdmin || note.CreatedByUserID == actor.ID
		}
	default:
		return nil, NewValidationError("Unknown action: " + action)
	}

	if !allowed {
		return nil, NewPermissionError("You don't have permission to " + action + " this note")
	}
	return note, nil
}

// Update 部分更新笔记内容
func (s *NoteService) Update(noteID uint, req *model.NoteUpdate) (*model.Note, error) {
	note, err := s.GetByID(noteID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, NewValidationError("Title cannot be empty")
		}
		if len(title) > 255 {
			return nil, NewValidationError("Title must be 255 characters or less")
		}
		note.Title = title
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return nil, NewValidationError("Content cannot be empty")
		}
		note.Content = content
	}
	if req.Privacy != nil {
		if *req.Privacy != model.NotePrivate && *req.Privacy != model.NotePublic {
			return nil, NewValidationError("Privacy must be 'private' or 'public'")
		}
		note.Privacy = *req.Privacy
	}

	note.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// Delete 删除笔记。默认软删除；permanent 时连带删除作者关联
func (s *NoteService) Delete(noteID uint, permanent bool) error {
	note, err := s.GetByID(noteID)
	if err != nil {
		return err
	}

	if !permanent {
		now := time.Now().UTC()
		note.DeletedAt = &now
		return s.db.Save(note).Error
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID).Delete(&model.NoteAuthor{}).Error; err != nil {
			return err
		}
		return tx.Delete(note).Error
	})
}

// List 分页列出笔记
// 可见范围按身份收窄：匿名只看 public；普通用户看 public + 自己参与的；管理员全量。
// total 与返回集合在同一查询条件下统计，保证一致
func (s *NoteService) List(skip, limit int, privacy *model.NotePrivacy, creatorID *uint, actor *model.User) (*model.NotesListResponse, error) {
	query := s.db.Model(&model.Note{}).Where("notes.deleted_at IS NULL")

	if privacy != nil {
		query = query.Where("notes.privacy = ?", *privacy)
	}
	if creatorID != nil {
		query = query.Where("notes.created_by_user_id = ?", *creatorID)
	}

	switch {
	case actor == nil:
		query = query.Where("notes.privacy = ?", model.NotePublic)
	case actor.Role != model.RoleAdmin:
		query = query.Where(
			"notes.privacy = ? OR notes.id IN (?)",
			model.NotePublic,
			s.db.Model(&model.NoteAuthor{}).Select("note_id").Where("user_id = ?", actor.ID),
		)
	}

	return s.paginate(query, skip, limit)
}

// ListMy 列出当前用户作为作者参与的笔记
func (s *NoteService) ListMy(userID uint, skip, limit int, privacy *model.NotePrivacy) (*model.NotesListResponse, error) {
	query := s.db.Model(&model.Note{}).
		Joins("JOIN note_authors ON note_authors.note_id = notes.id").
		Where("notes.deleted_at IS NULL AND note_authors.user_id = ?", userID)

	if privacy != nil {
		query = query.Where("notes.privacy = ?", *privacy)
	}

	return s.paginate(query, skip, limit)
}

func (s *NoteService) paginate(query *gorm.DB, skip, limit int) (*model.NotesListResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var notes []model.Note
	err := query.Order("notes.created_at DESC").
		Offset(skip).Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}

	items := make([]model.NoteListItem, 0, len(notes))
	for _, note := range notes {
		var authorsCount int64
		if err := s.db.Model(&model.NoteAuthor{}).Where("note_id = ?", note.ID).Count(&authorsCount).Error; err != nil {
			return nil, err
		}
		items = append(items, model.NoteListItem{
			ID:              note.ID,
			Title:           note.Title,
			Privacy:         note.Privacy,
			CreatedAt:       note.CreatedAt,
			UpdatedAt:       note.UpdatedAt,
			CreatedByUserID: note.CreatedByUserID,
			AuthorsCount:    authorsCount,
			ContentPreview:  contentPreview(note.Content),
		})
	}

	return &model.NotesListResponse{
		Notes:   items,
		Total:   total,
		Page:    (skip / limit) + 1,
		PerPage: limit,
		HasNext: int64(skip+limit) < total,
		HasPrev: skip > 0,
	}, nil
}

// Authors 按加入时间排序返回笔记的作者列表
func (s *NoteService) Authors(noteID uint) ([]model.AuthorInfo, error) {
	if _, err := s.GetByID(noteID); err != nil {
		return nil, err
	}

	var rows []struct {
		ID       uint
		Username string
		Name     string
		AddedAt  time.Time
	}
	err := s.db.Model(&model.NoteAuthor{}).
		Select("users.id, users.username, users.name, note_authors.added_at").
		Joins("JOIN users ON users.id = note_authors.user_id").
		Where("note_authors.note_id = ?", noteID).
		Order("note_authors.added_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	authors := make([]model.AuthorInfo, 0, len(rows))
	for _, row := range rows {
		authors = append(authors, model.AuthorInfo{
			ID:       row.ID,
			Username: row.Username,
			Name:     row.Name,
			AddedAt:  row.AddedAt,
		})
	}
	return authors, nil
}

// AddAuthor 添加作者，记录操作人和时间
func (s *NoteService) AddAuthor(noteID, userID uint, actingUser *model.User) error {
	if _, err := s.GetByID(noteID); err != nil {
		return err
	}

	var userCount int64
	err := s.db.Model(&model.User{}).
		Where("id = ? AND deleted_at IS NULL", userID).
		Count(&userCount).Error
	if err != nil {
		return err
	}
	if userCount == 0 {
		return NewNotFoundError("User not found")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.NoteAuthor{}).
			Where("note_id = ? AND user_id = ?", noteID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return NewConflictError("User is already an author of this note")
		}

		author := &model.NoteAuthor{
			NoteID:        noteID,
			UserID:        userID,
			AddedByUserID: actingUser.ID,
		}
		if err := tx.Create(author).Error; err != nil {
			// 并发重复添加撞复合主键
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return NewConflictError("User is already an author of this note")
			}
			return err
		}
		return nil
	})
}

// RemoveAuthor 移除作者，笔记必须至少保留一个作者
func (s *NoteService) RemoveAuthor(noteID, userID uint) error {
	if _, err := s.GetByID(noteID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var author model.NoteAuthor
		err := tx.Where("note_id = ? AND user_id = ?", noteID, userID).First(&author).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("User is not an author of this note")
		}
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.NoteAuthor{}).Where("note_id = ?", noteID).Count(&count).Error; err != nil {
			return err
		}
		if count == 1 {
			return NewValidationError("Cannot remove the last author from a note")
		}

		return tx.Delete(&author).Error
	})
}

// TransferOwnership 转移创建者身份，新创建者必须已是作者
func (s *NoteService) TransferOwnership(noteID, newCreatorID uint, actingUser *model.User) error {
	note, err := s.GetByID(noteID)
	if err != nil {
		return err
	}

	if note.CreatedByUserID != actingUser.ID && actingUser.Role != model.RoleAdmin {
		return NewPermissionError("You don't have permission to transfer ownership of this note")
	}

	if !s.isAuthor(noteID, newCreatorID) {
		return NewNotFoundError("User is not an author of this note")
	}

	note.CreatedByUserID = newCreatorID
	note.UpdatedAt = time.Now().UTC()
	return s.db.Save(note).Error
}

func (s *NoteService) isAuthor(noteID, userID uint) bool {
	var count int64
	s.db.Model(&model.NoteAuthor{}).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		Count(&count)
	return count > 0
}

// contentPreview 截取前 100 个字符作为预览，超长加省略号
func contentPreview(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLen {
		return content
	}
	return string(runes[:contentPreviewLen]) + "..."
}

// validateNoteContent 标题和内容去空白后必须非空，标题不超过 255 字符
func validateNoteContent(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	if title == "" {
		return "", "", NewValidationError("Title cannot be empty")
	}
	if len(title) > 255 {
		return "", "", NewValidationError("Title must be 255 characters or less")
	}
	if content == "" {
		return "", "", NewValidationError("Content cannot be empty")
	}
	return title, content, nil
}
