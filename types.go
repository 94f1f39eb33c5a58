package vidya

// UserRecord is the account profile returned by the API and cached locally
// for offline display.
type UserRecord struct {
	UserID    string `json:"user_id"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Plan      string `json:"plan,omitempty"`
}

// UserStats is the gamification summary shown on the profile screen.
type UserStats struct {
	XP             int `json:"xp"`
	Streak         int `json:"streak"`
	QuizzesTaken   int `json:"quizzes_taken"`
	CorrectAnswers int `json:"correct_answers"`
	Rank           int `json:"rank"`
}

// AuthResponse is returned by [Client.VerifyOTP]. Both tokens and the user
// record are persisted before the response is handed to the caller.
type AuthResponse struct {
	User         UserRecord `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

// TokenPair is the access/refresh credential pair minted by OTP verification
// and rotated on every successful refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LeaderboardEntry is one row of the ranked leaderboard.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	XP     int    `json:"xp"`
}
