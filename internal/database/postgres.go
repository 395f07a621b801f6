package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusshare/server/internal/models"
)

// PostgresStore implements Store over database/sql.
type PostgresStore struct {
	*sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db}, nil
}

func (db *PostgresStore) Close() error {
	return db.DB.Close()
}

// ---- users ----

func (db *PostgresStore) CreateUser(email, passwordHash, fullName, collegeName, phone string) (*models.User, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = $1", email).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		CollegeName:  collegeName,
		Phone:        phone,
		CreatedAt:    time.Now().UTC(),
		LastSeen:     time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, password_hash, full_name, college_name, phone, created_at, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.CollegeName, user.Phone,
		user.CreatedAt, user.LastSeen,
	)
	if err != nil {
		// Two concurrent signups can both pass the count check; the
		// unique constraint catches the loser.
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const userColumns = `id, email, password_hash, full_name, college_name, phone, is_admin, is_blocked, created_at, last_seen`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.CollegeName, &user.Phone, &user.IsAdmin, &user.IsBlocked,
		&user.CreatedAt, &user.LastSeen)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *PostgresStore) GetUserByEmail(email string) (*models.User, error) {
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (db *PostgresStore) GetUserByID(id uuid.UUID) (*models.User, error) {
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (db *PostgresStore) UpdateLastSeen(userID uuid.UUID) error {
	result, err := db.Exec("UPDATE users SET last_seen = $1 WHERE id = $2", time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRows(result, ErrUserNotFound)
}

func (db *PostgresStore) ListUsers() ([]*models.User, error) {
	rows, err := db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (db *PostgresStore) SetUserBlocked(userID uuid.UUID, blocked bool) error {
	result, err := db.Exec("UPDATE users SET is_blocked = $1 WHERE id = $2", blocked, userID)
	if err != nil {
		return err
	}
	return requireRows(result, ErrUserNotFound)
}

// ---- items ----

const itemColumns = `id, user_id, title, description, category, condition, image_url, pickup_location, status, created_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.Category,
		&item.Condition, &item.ImageURL, &item.PickupLocation, &item.Status, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (db *PostgresStore) CreateItem(userID uuid.UUID, in models.ItemInput) (*models.Item, error) {
	item := &models.Item{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Condition:      in.Condition,
		ImageURL:       in.ImageURL,
		PickupLocation: in.PickupLocation,
		Status:         models.ItemAvailable,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO items (id, user_id, title, description, category, condition, image_url, pickup_location, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.UserID, item.Title, item.Description, item.Category, item.Condition,
		item.ImageURL, item.PickupLocation, item.Status, item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (db *PostgresStore) GetItemByID(id uuid.UUID) (*models.Item, error) {
	return scanItem(db.QueryRow("SELECT "+itemColumns+" FROM items WHERE id = $1", id))
}

func (db *PostgresStore) ListItems() ([]*models.Item, error) {
	rows, err := db.Query("SELECT " + itemColumns + " FROM items ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *PostgresStore) UpdateItem(id uuid.UUID, in models.ItemInput) (*models.Item, error) {
	result, err := db.Exec(
		`UPDATE items SET title = $1, description = $2, category = $3, condition = $4,
		        image_url = $5, pickup_location = $6
		 WHERE id = $7`,
		in.Title, in.Description, in.Category, in.Condition, in.ImageURL, in.PickupLocation, id,
	)
	if err != nil {
		return nil, err
	}
	if err := requireRows(result, ErrItemNotFound); err != nil {
		return nil, err
	}
	return db.GetItemByID(id)
}

func (db *PostgresStore) UpdateItemStatus(id uuid.UUID, status string) error {
	result, err := db.Exec("UPDATE items SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	return requireRows(result, ErrItemNotFound)
}

func (db *PostgresStore) DeleteItem(id uuid.UUID) error {
	result, err := db.Exec("DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRows(result, ErrItemNotFound)
}

// ---- item requests ----

const requestColumns = `id, item_id, requester_id, message, status, created_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.ItemRequest, error) {
	var req models.ItemRequest
	err := row.Scan(&req.ID, &req.ItemID, &req.RequesterID, &req.Message, &req.Status, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (db *PostgresStore) CreateRequest(itemID, requesterID uuid.UUID, message string) (*models.ItemRequest, error) {
	req := &models.ItemRequest{
		ID:          uuid.New(),
		ItemID:      itemID,
		RequesterID: requesterID,
		Message:     message,
		Status:      models.RequestPending,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO item_requests (id, item_id, requester_id, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.ItemID, req.RequesterID, req.Message, req.Status, req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (db *PostgresStore) GetRequestByID(id uuid.UUID) (*models.ItemRequest, error) {
	return scanRequest(db.QueryRow("SELECT "+requestColumns+" FROM item_requests WHERE id = $1", id))
}

// ListRequestsForUser returns requests the user made plus requests made
// for the user's items.
func (db *PostgresStore) ListRequestsForUser(userID uuid.UUID) ([]*models.ItemRequest, error) {
	rows, err := db.Query(
		`SELECT r.id, r.item_id, r.requester_id, r.message, r.status, r.created_at
		 FROM item_requests r
		 JOIN items i ON r.item_id = i.id
		 WHERE r.requester_id = $1 OR i.user_id = $1
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.ItemRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// TransitionRequest performs the guarded status write. The row changes
// only if its status still equals from; a false return with nil error
// means someone else transitioned it first.
func (db *PostgresStore) TransitionRequest(id uuid.UUID, from, to models.RequestStatus) (bool, error) {
	result, err := db.Exec(
		"UPDATE item_requests SET status = $1 WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ---- lost & found ----

const lostFoundColumns = `id, user_id, title, description, image_url, location, kind, status, created_at`

func scanLostFound(row interface{ Scan(...interface{}) error }) (*models.LostFoundPost, error) {
	var post models.LostFoundPost
	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Description, &post.ImageURL,
		&post.Location, &post.Kind, &post.Status, &post.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLostFoundNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (db *PostgresStore) CreateLostFound(userID uuid.UUID, in models.LostFoundInput) (*models.LostFoundPost, error) {
	post := &models.LostFoundPost{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Location:    in.Location,
		Kind:        in.Kind,
		Status:      models.LostFoundOpen,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO lost_found (id, user_id, title, description, image_url, location, kind, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.UserID, post.Title, post.Description, post.ImageURL,
		post.Location, post.Kind, post.Status, post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (db *PostgresStore) GetLostFoundByID(id uuid.UUID) (*models.LostFoundPost, error) {
	return scanLostFound(db.QueryRow("SELECT "+lostFoundColumns+" FROM lost_found WHERE id = $1", id))
}

func (db *PostgresStore) ListLostFound(kind string) ([]*models.LostFoundPost, error) {
	query := "SELECT " + lostFoundColumns + " FROM lost_found ORDER BY created_at DESC"
	args := []interface{}{}
	if kind != "" {
		query = "SELECT " + lostFoundColumns + " FROM lost_found WHERE kind = $1 ORDER BY created_at DESC"
		args = append(args, kind)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.LostFoundPost
	for rows.Next() {
		post, err := scanLostFound(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (db *PostgresStore) UpdateLostFoundStatus(id uuid.UUID, status string) error {
	result, err := db.Exec("UPDATE lost_found SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	return requireRows(result, ErrLostFoundNotFound)
}

// ---- chat threads & messages ----

const threadColumns = `id, item_id, lost_found_id, owner_id, requester_id, created_at`

func scanThread(row interface{ Scan(...interface{}) error }) (*models.Thread, error) {
	var thread models.Thread
	var itemID, lostFoundID uuid.NullUUID
	err := row.Scan(&thread.ID, &itemID, &lostFoundID, &thread.OwnerID, &thread.RequesterID, &thread.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	if itemID.Valid {
		thread.ItemID = &itemID.UUID
	}
	if lostFoundID.Valid {
		thread.LostFoundID = &lostFoundID.UUID
	}
	return &thread, nil
}

// GetOrCreateThread inserts under the tuple uniqueness constraint and
// reads the winner back, so concurrent callers with the same arguments
// always converge on one thread. Never check-then-insert.
func (db *PostgresStore) GetOrCreateThread(itemID, lostFoundID *uuid.UUID, requesterID, ownerID uuid.UUID) (*models.Thread, error) {
	var itemVal, lostFoundVal uuid.NullUUID
	if itemID != nil {
		itemVal = uuid.NullUUID{UUID: *itemID, Valid: true}
	}
	if lostFoundID != nil {
		lostFoundVal = uuid.NullUUID{UUID: *lostFoundID, Valid: true}
	}

	_, err := db.Exec(
		`INSERT INTO chat_threads (id, item_id, lost_found_id, owner_id, requester_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT DO NOTHING`,
		uuid.New(), itemVal, lostFoundVal, ownerID, requesterID, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	var row *sql.Row
	if itemID != nil {
		row = db.QueryRow(
			"SELECT "+threadColumns+" FROM chat_threads WHERE item_id = $1 AND requester_id = $2 AND owner_id = $3",
			*itemID, requesterID, ownerID,
		)
	} else {
		row = db.QueryRow(
			"SELECT "+threadColumns+" FROM chat_threads WHERE lost_found_id = $1 AND requester_id = $2 AND owner_id = $3",
			*lostFoundID, requesterID, ownerID,
		)
	}

	return scanThread(row)
}

func (db *PostgresStore) GetThreadByID(id uuid.UUID) (*models.Thread, error) {
	return scanThread(db.QueryRow("SELECT "+threadColumns+" FROM chat_threads WHERE id = $1", id))
}

func (db *PostgresStore) ListThreadsForUser(userID uuid.UUID) ([]*models.Thread, error) {
	rows, err := db.Query(
		"SELECT "+threadColumns+" FROM chat_threads WHERE owner_id = $1 OR requester_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

func (db *PostgresStore) ListMessages(threadID uuid.UUID) ([]*models.ChatMessage, error) {
	rows, err := db.Query(
		`SELECT id, thread_id, sender_id, body, is_read, created_at
		 FROM chat_messages
		 WHERE thread_id = $1
		 ORDER BY created_at ASC, id ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Body, &msg.IsRead, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// AppendMessage lets the database assign created_at so message order
// does not depend on the clock of whichever instance took the write.
func (db *PostgresStore) AppendMessage(threadID, senderID uuid.UUID, body string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:       uuid.New(),
		ThreadID: threadID,
		SenderID: senderID,
		Body:     body,
		IsRead:   false,
	}

	err := db.QueryRow(
		`INSERT INTO chat_messages (id, thread_id, sender_id, body, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING created_at`,
		msg.ID, msg.ThreadID, msg.SenderID, msg.Body, msg.IsRead,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// MarkThreadRead flips every unread message the reader did not send.
// Repeat calls match zero rows and are no-ops.
func (db *PostgresStore) MarkThreadRead(threadID, readerID uuid.UUID) error {
	_, err := db.Exec(
		"UPDATE chat_messages SET is_read = TRUE WHERE thread_id = $1 AND sender_id <> $2 AND is_read = FALSE",
		threadID, readerID,
	)
	return err
}

// ---- notifications ----

func (db *PostgresStore) CreateNotification(userID uuid.UUID, typ, title, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO notifications (id, user_id, type, title, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return n, nil
}

func (db *PostgresStore) ListNotifications(userID uuid.UUID) ([]*models.Notification, error) {
	rows, err := db.Query(
		`SELECT id, user_id, type, title, message, is_read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead is scoped to the owning user; a foreign or
// unknown notification matches zero rows and reports not-found.
func (db *PostgresStore) MarkNotificationRead(id, userID uuid.UUID) error {
	result, err := db.Exec("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	return requireRows(result, ErrNotificationNotFound)
}

func (db *PostgresStore) MarkAllNotificationsRead(userID uuid.UUID) error {
	_, err := db.Exec("UPDATE notifications SET is_read = TRUE WHERE user_id = $1", userID)
	return err
}

// ---- eco points ----

func (db *PostgresStore) AddEcoPoints(userID uuid.UUID, delta int) error {
	_, err := db.Exec(
		`INSERT INTO eco_points (user_id, points) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET points = eco_points.points + EXCLUDED.points`,
		userID, delta,
	)
	return err
}

func (db *PostgresStore) TopEcoPoints(limit int) ([]*models.LeaderboardEntry, error) {
	rows, err := db.Query(
		`SELECT e.user_id, e.points, u.full_name, u.college_name
		 FROM eco_points e
		 JOIN users u ON e.user_id = u.id
		 ORDER BY e.points DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(&entry.UserID, &entry.Points, &entry.FullName, &entry.CollegeName)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// ---- reports & stats ----

func (db *PostgresStore) CreateReport(itemID, reporterID uuid.UUID, reason, details string) (*models.Report, error) {
	report := &models.Report{
		ID:         uuid.New(),
		ItemID:     itemID,
		ReporterID: reporterID,
		Reason:     reason,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO reports (id, item_id, reporter_id, reason, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.ItemID, report.ReporterID, report.Reason, report.Details, report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (db *PostgresStore) ListReports() ([]*models.Report, error) {
	rows, err := db.Query(
		`SELECT id, item_id, reporter_id, reason, details, created_at
		 FROM reports ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		var report models.Report
		err := rows.Scan(&report.ID, &report.ItemID, &report.ReporterID, &report.Reason,
			&report.Details, &report.CreatedAt)
		if err != nil {
			return nil, err
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

func (db *PostgresStore) Stats() (map[string]int, error) {
	stats := make(map[string]int)
	for _, table := range []string{"users", "items", "item_requests", "lost_found", "reports"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

func requireRows(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missing
	}
	return nil
}
