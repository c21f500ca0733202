package postgres

import "database/sql"

// Stores groups the repositories sharing one pool.
type Stores struct {
	Leads   *LeadRepository
	Users   *UserRepository
	Resumes *ResumeRepository
}

func NewStores(db *sql.DB) Stores {
	return Stores{
		Leads:   NewLeadRepository(db),
		Users:   NewUserRepository(db),
		Resumes: NewResumeRepository(db),
	}
}
