package quiz

import "time"

// Question is embedded in a Quiz and never changes after generation.
// CorrectAnswer is a single option letter ("A".."D"); it is empty when the
// model response carried no answer line.
type Question struct {
	ID            string   `json:"_id" bson:"id"`
	Question      string   `json:"question" bson:"question"`
	Options       []string `json:"options" bson:"options"`
	CorrectAnswer string   `json:"correctAnswer" bson:"correctAnswer"`
}

// AttemptDetail records the outcome for one submitted response.
// CorrectAnswer is nil when QuestionID matched no question in the quiz or
// the question has no stored answer key.
type AttemptDetail struct {
	QuestionID    string  `json:"questionId" bson:"questionId"`
	CorrectAnswer *string `json:"correctAnswer" bson:"correctAnswer"`
	UserResponse  string  `json:"userResponse" bson:"userResponse"`
	IsCorrect     bool    `json:"isCorrect" bson:"isCorrect"`
}

type Attempt struct {
	Username string          `json:"username,omitempty" bson:"username,omitempty"`
	Score    float64         `json:"score" bson:"score"`
	Details  []AttemptDetail `json:"details" bson:"details"`
	Date     time.Time       `json:"date" bson:"date"`
}

type Quiz struct {
	ID        string     `json:"_id" bson:"_id"`
	Grade     string     `json:"grade" bson:"grade"`
	Subject   string     `json:"subject" bson:"subject"`
	Questions []Question `json:"questions" bson:"questions"`
	Attempts  []Attempt  `json:"attempts" bson:"attempts"`
	Date      time.Time  `json:"date" bson:"date"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	QuizHistory  []string  `json:"quizHistory" bson:"quizHistory"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// HasQuiz reports whether quizID is already in the user's history.
func (u User) HasQuiz(quizID string) bool {
	for _, id := range u.QuizHistory {
		if id == quizID {
			return true
		}
	}
	return false
}
