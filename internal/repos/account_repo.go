package repos

import (
	"github.com/jmoiron/sqlx"

	"gardenly/internal/domain"
)

type AccountRepo struct{ DB *sqlx.DB }

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountCols = `id, username, email, mobile, password_hash, role, expertise, available`

func (r *AccountRepo) Create(a domain.Account) error {
	_, err := r.DB.Exec(`
	  INSERT INTO accounts(id, username, email, mobile, password_hash, role, expertise, available)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Username, a.Email, a.Mobile, a.Hash, a.Role, a.Expertise, a.Available)
	return err
}

func (r *AccountRepo) ByEmail(email string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `SELECT `+accountCols+` FROM accounts WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) ByID(id string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `SELECT `+accountCols+` FROM accounts WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByRole is the directory lookup for role-tagged accounts (e.g. the
// agents a manager can assign).
func (r *AccountRepo) ListByRole(role domain.Role) ([]domain.Account, error) {
	var out []domain.Account
	err := r.DB.Select(&out, `SELECT `+accountCols+` FROM accounts WHERE role=? ORDER BY username`, role)
	return out, err
}

func (r *AccountRepo) List() ([]domain.Account, error) {
	var out []domain.Account
	err := r.DB.Select(&out, `SELECT `+accountCols+` FROM accounts ORDER BY username`)
	return out, err
}

func (r *AccountRepo) SetAvailability(id string, available bool) error {
	_, err := r.DB.Exec(`UPDATE accounts SET available=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, available, id)
	return err
}

func (r *AccountRepo) BindSession(sid, accountID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,account_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET account_id=excluded.account_id,last_seen=CURRENT_TIMESTAMP`, sid, accountID)
	return err
}

func (r *AccountRepo) SessionAccount(sid string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `
      SELECT a.id,a.username,a.email,a.mobile,a.password_hash,a.role,a.expertise,a.available
      FROM sessions s
      JOIN accounts a ON a.id=s.account_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET account_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// DeleteAccountCascade cancels the account's pending orders and removes its
// sessions, cart and tickets, keeping confirmed orders for audit.
func (r *AccountRepo) DeleteAccountCascade(accountID string) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE orders SET status=?, otp_code='', otp_expires_at=''
	  WHERE buyer_id=? AND status=?`, domain.OrderCancelled, accountID, domain.OrderPendingOTP); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM carts WHERE buyer_id=?`, accountID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tickets WHERE buyer_id=?`, accountID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE account_id=?`, accountID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM accounts WHERE id=?`, accountID); err != nil {
		return err
	}

	return tx.Commit()
}
