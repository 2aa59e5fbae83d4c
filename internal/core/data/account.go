package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account contains the login information and settings specific to each
// registered user.
type Account struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"not null"`
	// SafeName is the case-folded username used for lookups.
	SafeName string `gorm:"unique; not null"`
	// Password is a bcrypt hash of the MD5 of the plaintext password, which is
	// what the client sends.
	Password            string `gorm:"not null"`
	Email               string `gorm:"unique"`
	RegistrationDate    time.Time
	Privileges          Privileges `gorm:"default:1"`
	Country             string     `gorm:"size:2"`
	Banned              bool       `gorm:"default:false"`
	PreferredMode       uint8
	PreferredCustomMode uint8
	BlockNonFriendDMs   bool `gorm:"default:false"`
	DeletedAt           gorm.DeletedAt
}

func FindAccountByID(db *gorm.DB, id uint64) (*Account, error) {
	var account Account
	err := db.First(&account, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// FindAccountBySafeName searches for an account with the specified safe name,
// returning the *Account instance if found or nil if there is no match.
func FindAccountBySafeName(db *gorm.DB, safeName string) (*Account, error) {
	var account Account
	err := db.Where("safe_name = ?", safeName).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// FindUnscopedAccount searches for a potentially soft-deleted account with the
// specified safe name, returning the *Account instance if found or nil if
// there is no match.
func FindUnscopedAccount(db *gorm.DB, safeName string) (*Account, error) {
	var account Account
	err := db.Unscoped().Where("safe_name = ?", safeName).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// ListAccounts returns every account that has not been deleted, ordered by ID.
func ListAccounts(db *gorm.DB) ([]Account, error) {
	var accounts []Account
	if err := db.Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateAccount persists the Account record to the database along with an
// empty set of statistics for every mode.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(NewModeStats(account.ID)).Error
	})
}

// UpdatePassword replaces the stored password hash of the account.
func UpdatePassword(db *gorm.DB, account *Account, hash string) error {
	if err := db.Model(account).Update("password", hash).Error; err != nil {
		return err
	}
	account.Password = hash
	return nil
}

// UpdateBlockNonFriendDMs persists whether the account accepts private
// messages from users that are not its friends.
func UpdateBlockNonFriendDMs(db *gorm.DB, accountID uint64, block bool) error {
	return db.Model(&Account{}).Where("id = ?", accountID).Update("block_non_friend_dms", block).Error
}

// DeleteAccount soft-deletes an Account record from the database.
func DeleteAccount(db *gorm.DB, account *Account) error {
	return db.Delete(account).Error
}

// PermanentlyDeleteAccount permanently deletes an Account record and its
// statistics from the database.
func PermanentlyDeleteAccount(db *gorm.DB, account *Account) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", account.ID).Delete(&ModeStats{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(account).Error
	})
}
